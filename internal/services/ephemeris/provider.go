package ephemeris

import (
	"time"

	"github.com/admin/astro-natal/internal/domain"
)

// RawBody сырые данные тела от поставщика эфемерид
type RawBody struct {
	Longitude float64
	Latitude  float64
	Speed     float64 // градусов в сутки, отрицательная - ретроградность
	// RetrogradeHint флаг поставщика, используется только если скорость не пришла
	RetrogradeHint *bool
	// HouseHint номер дома от поставщика, используется только если нет куспидов
	HouseHint int
}

// Image изображение карты, если поставщик его отдаёт
type Image struct {
	Format string
	Data   []byte
}

// Snapshot ответ поставщика для одного момента и места
type Snapshot struct {
	Instant   time.Time
	Bodies    map[domain.Body]RawBody
	Cusps     []float64 // 12 значений в порядке домов или пусто
	Ascendant *float64
	Midheaven *float64
	Image     *Image
}

// Request запрос к поставщику: момент уже в UTC
type Request struct {
	Name        string
	Instant     time.Time
	Coordinates *domain.Coordinates
	Location    string
	Timezone    string
	HouseSystem domain.HouseSystem
	Bodies      []domain.Body
	Language    string
}
