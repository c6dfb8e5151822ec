package astroApi

// BirthData момент рождения уже в UTC и координаты места
type BirthData struct {
	Year      int      `json:"year"`
	Month     int      `json:"month"`
	Day       int      `json:"day"`
	Hour      int      `json:"hour"`
	Minute    int      `json:"minute"`
	Second    int      `json:"second"`
	Timezone  string   `json:"timezone"` // всегда "UTC"
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	City      string   `json:"city,omitempty"`
}

// Person субъект карты
type Person struct {
	Name      string    `json:"name"`
	BirthData BirthData `json:"birth_data"`
}

// PositionsOptions опции запроса позиций
type PositionsOptions struct {
	HouseSystem  string   `json:"house_system"`       // "P" для Плацидуса
	Language     string   `json:"language,omitempty"` // "en"
	ZodiacType   string   `json:"zodiac_type"`        // "Tropic" для тропического
	ActivePoints []string `json:"active_points"`      // ["Sun", "Moon", ...]
	Precision    int      `json:"precision"`
	IncludeSVG   bool     `json:"include_svg,omitempty"`
}

// PositionsRequest запрос позиций
type PositionsRequest struct {
	Subject Person           `json:"subject"`
	Options PositionsOptions `json:"options"`
}

// PositionsResponse ответ API позиций
type PositionsResponse struct {
	Status  string         `json:"status"`
	Code    int            `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    *PositionsData `json:"data,omitempty"`
	RawJSON string         `json:"-"`
}

// PositionsData полезная нагрузка; любые подполя могут отсутствовать
type PositionsData struct {
	Positions []PlanetPosition `json:"positions"`
	Houses    []HousePosition  `json:"houses,omitempty"`
	Angles    *Angles          `json:"angles,omitempty"`
	Aspects   []Aspect         `json:"aspects,omitempty"`
	ChartSVG  string           `json:"chart_svg,omitempty"`
}

// PlanetPosition позиция тела: градус внутри знака и/или абсолютная долгота
type PlanetPosition struct {
	Name              string   `json:"name"`
	Sign              string   `json:"sign"`
	Degree            float64  `json:"degree"`
	AbsoluteLongitude *float64 `json:"absolute_longitude,omitempty"`
	Latitude          float64  `json:"latitude,omitempty"`
	Speed             *float64 `json:"speed,omitempty"`
	IsRetrograde      *bool    `json:"is_retrograde,omitempty"`
	House             int      `json:"house,omitempty"`
}

// HousePosition куспид дома
type HousePosition struct {
	House             int      `json:"house"`
	Sign              string   `json:"sign"`
	Degree            float64  `json:"degree"`
	AbsoluteLongitude *float64 `json:"absolute_longitude,omitempty"`
}

// Angles асцендент и MC
type Angles struct {
	Ascendant *float64 `json:"ascendant,omitempty"`
	Midheaven *float64 `json:"midheaven,omitempty"`
}

// Aspect аспект из ответа API; карта пересчитывает аспекты сама
type Aspect struct {
	Point1 string  `json:"point1"`
	Point2 string  `json:"point2"`
	Aspect string  `json:"aspect"`
	Orb    float64 `json:"orb"`
}
