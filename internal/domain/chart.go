package domain

import (
	"time"

	"github.com/google/uuid"
)

// BodyPosition вычисленное положение тела в карте
type BodyPosition struct {
	Body         Body    `json:"body"`
	Longitude    float64 `json:"longitude"`
	Latitude     float64 `json:"latitude"`
	Sign         Sign    `json:"sign"`
	House        int     `json:"house"` // 0 если куспиды домов не получены
	IsRetrograde bool    `json:"is_retrograde"`
	Speed        float64 `json:"speed"`
}

// House дом карты; номера 1..12 идут в порядке куспидов
type House struct {
	Number    int     `json:"number"`
	Longitude float64 `json:"longitude"`
	Sign      Sign    `json:"sign"`
}

// Aspect аспект между двумя телами, Orb всегда в [0, maxOrb типа]
type Aspect struct {
	First      Body       `json:"first"`
	Second     Body       `json:"second"`
	Type       AspectType `json:"type"`
	Orb        float64    `json:"orb"`
	IsApplying bool       `json:"is_applying"`
}

// HouseRuler управитель куспида дома и его текущее положение
type HouseRuler struct {
	House          int     `json:"house"`
	RulingPlanet   Body    `json:"ruling_planet"`
	RulerSign      Sign    `json:"ruler_sign"`
	RulerHouse     int     `json:"ruler_house"`
	RulerLongitude float64 `json:"ruler_longitude"`
}

// Visualization ссылка на изображение карты во внешнем хранилище
type Visualization struct {
	ID     string `json:"id"`
	Format string `json:"format"`
}

// NatalChart агрегат натальной карты. После создания не изменяется,
// обновление карты - это новая карта
type NatalChart struct {
	ID            uuid.UUID      `json:"id"`
	BirthDate     LocalDate      `json:"birth_date"`
	BirthTime     LocalTime      `json:"birth_time"`
	BirthInstant  time.Time      `json:"birth_instant"`
	Coordinates   *Coordinates   `json:"coordinates,omitempty"`
	Location      string         `json:"location"`
	HouseSystem   HouseSystem    `json:"house_system"`
	Bodies        []BodyPosition `json:"bodies"`
	Houses        []House        `json:"houses"`
	Aspects       []Aspect       `json:"aspects"`
	HouseRulers   []HouseRuler   `json:"house_rulers"`
	Ascendant     float64        `json:"ascendant"`
	Midheaven     float64        `json:"midheaven"`
	ComputedAt    time.Time      `json:"computed_at"`
	Visualization *Visualization `json:"visualization,omitempty"`
}

// Body возвращает положение тела, если оно есть в карте
func (c *NatalChart) Body(b Body) (BodyPosition, bool) {
	for _, p := range c.Bodies {
		if p.Body == b {
			return p, true
		}
	}
	return BodyPosition{}, false
}

// CachedChartRecord запись кэша: сериализованная карта, отпечаток входа и время генерации
type CachedChartRecord struct {
	Fingerprint string    `json:"fingerprint" db:"fingerprint"`
	ChartID     uuid.UUID `json:"chart_id" db:"chart_id"`
	Chart       []byte    `json:"chart" db:"chart"`
	GeneratedAt time.Time `json:"generated_at" db:"generated_at"`
}

// Age возраст записи относительно reference
func (r *CachedChartRecord) Age(reference time.Time) time.Duration {
	return reference.Sub(r.GeneratedAt)
}

// RateLimiterState сохраняемое состояние ограничителя запросов
type RateLimiterState struct {
	Timestamps   []time.Time `json:"timestamps"`
	MonthToken   string      `json:"month_token"`
	MonthlyCount int         `json:"monthly_count"`
}

// MonthToken токен календарного месяца в UTC, "2006-01"
func MonthToken(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// MonthlyUsage оценка расхода квоты за текущий месяц
type MonthlyUsage struct {
	Month           string `json:"month"`
	RequestCount    int    `json:"request_count"`
	EstimatedCharts int    `json:"estimated_charts"`
	CreditsConsumed int    `json:"credits_consumed"`
}
