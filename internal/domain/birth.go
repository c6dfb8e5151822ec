package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// CoordinatePrecision знаков после запятой, с которыми координаты входят в отпечаток (~11 м)
const CoordinatePrecision = 4

var validate = validator.New(validator.WithRequiredStructEnabled())

// LocalDate календарная дата без часового пояса
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

func (d LocalDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// IsValid проверяет, что дата существует (30 февраля - нет)
func (d LocalDate) IsValid() bool {
	if d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	return t.Year() == d.Year && t.Month() == d.Month && t.Day() == d.Day
}

func (d LocalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d LocalDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *LocalDate) UnmarshalText(text []byte) error {
	t, err := time.Parse(time.DateOnly, string(text))
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", text, err)
	}
	*d = LocalDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
	return nil
}

// LocalTime время на часах без даты, с точностью до минуты
type LocalTime struct {
	Hour   int
	Minute int
}

func (t LocalTime) IsValid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

func (t LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t LocalTime) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *LocalTime) UnmarshalText(text []byte) error {
	parsed, err := time.Parse("15:04", string(text))
	if err != nil {
		return fmt.Errorf("invalid time %q: %w", text, err)
	}
	*t = LocalTime{Hour: parsed.Hour(), Minute: parsed.Minute()}
	return nil
}

// Coordinates географические координаты в градусах
type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// BirthInput данные рождения; значение неизменяемое, идентичность - Fingerprint
type BirthInput struct {
	Name        string       `json:"name" validate:"max=200"`
	Date        LocalDate    `json:"date"`
	Time        LocalTime    `json:"time"`
	Location    string       `json:"location" validate:"max=500"`
	Timezone    string       `json:"timezone" validate:"required,max=64"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Validate проверяет теги и календарную корректность
func (b BirthInput) Validate() error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBirthInput, err)
	}
	if !b.Date.IsValid() {
		return fmt.Errorf("%w: date %s does not exist", ErrInvalidBirthInput, b.Date)
	}
	if !b.Time.IsValid() {
		return fmt.Errorf("%w: time %s is out of range", ErrInvalidBirthInput, b.Time)
	}
	return nil
}

// Fingerprint детерминированный ключ кэша: имя, дата, время, место и координаты,
// округлённые до CoordinatePrecision знаков
func (b BirthInput) Fingerprint() string {
	coords := "-"
	if b.Coordinates != nil {
		coords = strconv.FormatFloat(roundCoord(b.Coordinates.Latitude), 'f', CoordinatePrecision, 64) +
			"," + strconv.FormatFloat(roundCoord(b.Coordinates.Longitude), 'f', CoordinatePrecision, 64)
	}

	parts := []string{b.Name, b.Date.String(), b.Time.String(), b.Location, coords}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func roundCoord(v float64) float64 {
	s := strconv.FormatFloat(v, 'f', CoordinatePrecision, 64)
	r, _ := strconv.ParseFloat(s, 64)
	// -0.0000 и 0.0000 должны давать один отпечаток
	if r == 0 {
		return 0
	}
	return r
}
