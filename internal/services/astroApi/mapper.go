package astroApi

import (
	"fmt"
	"math"
	"sort"
	"time"

	astroApiAdapter "github.com/admin/astro-natal/internal/adapters/secondary/astroApi"
	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/services/ephemeris"
)

// toSnapshot переводит словарь API в закрытые типы домена.
// Неизвестное имя тела или знака - DecodingError, без подстановки значений по умолчанию.
// Отсутствующие дома не ошибка: снимок уходит без куспидов.
func toSnapshot(instant time.Time, data *astroApiAdapter.PositionsData) (*ephemeris.Snapshot, error) {
	if data == nil {
		return nil, decodingErr("empty positions payload")
	}

	snap := &ephemeris.Snapshot{
		Instant: instant,
		Bodies:  make(map[domain.Body]ephemeris.RawBody, len(data.Positions)),
	}

	for _, p := range data.Positions {
		body, err := domain.ParseBody(p.Name)
		if err != nil {
			return nil, &domain.DecodingError{Cause: err}
		}
		if _, dup := snap.Bodies[body]; dup {
			return nil, decodingErr("duplicate position for %s", body)
		}

		lon, err := longitude(p.Sign, p.Degree, p.AbsoluteLongitude)
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", p.Name, err)
		}

		raw := ephemeris.RawBody{
			Longitude:      lon,
			Latitude:       p.Latitude,
			RetrogradeHint: p.IsRetrograde,
			HouseHint:      p.House,
		}
		if p.Speed != nil {
			raw.Speed = *p.Speed
		}
		snap.Bodies[body] = raw
	}

	if len(data.Houses) > 0 {
		cusps, err := cusps(data.Houses)
		if err != nil {
			return nil, err
		}
		snap.Cusps = cusps
	}

	if data.Angles != nil {
		snap.Ascendant = data.Angles.Ascendant
		snap.Midheaven = data.Angles.Midheaven
	}

	if data.ChartSVG != "" {
		snap.Image = &ephemeris.Image{Format: "svg", Data: []byte(data.ChartSVG)}
	}

	return snap, nil
}

// cusps 12 куспидов в порядке номеров домов
func cusps(houses []astroApiAdapter.HousePosition) ([]float64, error) {
	if len(houses) != 12 {
		return nil, decodingErr("expected 12 houses, got %d", len(houses))
	}

	sorted := append([]astroApiAdapter.HousePosition(nil), houses...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].House < sorted[j].House })

	out := make([]float64, 12)
	for i, h := range sorted {
		if h.House != i+1 {
			return nil, decodingErr("house numbers must be 1..12, got %d at position %d", h.House, i+1)
		}
		lon, err := longitude(h.Sign, h.Degree, h.AbsoluteLongitude)
		if err != nil {
			return nil, fmt.Errorf("house %d: %w", h.House, err)
		}
		out[i] = lon
	}
	return out, nil
}

// longitude абсолютная долгота, если API её прислал, иначе знак*30 + градус в знаке
func longitude(sign string, degree float64, absolute *float64) (float64, error) {
	if absolute != nil {
		if math.IsNaN(*absolute) || math.IsInf(*absolute, 0) {
			return 0, decodingErr("invalid absolute longitude")
		}
		if sign != "" {
			if _, err := domain.ParseSign(sign); err != nil {
				return 0, &domain.DecodingError{Cause: err}
			}
		}
		return domain.WrapDegree(*absolute), nil
	}

	s, err := domain.ParseSign(sign)
	if err != nil {
		return 0, &domain.DecodingError{Cause: err}
	}
	if degree < 0 || degree >= 30 || math.IsNaN(degree) {
		return 0, decodingErr("degree %.4f outside sign range", degree)
	}
	return float64(s)*30 + degree, nil
}

func decodingErr(format string, args ...any) error {
	return &domain.DecodingError{Cause: fmt.Errorf(format, args...)}
}
