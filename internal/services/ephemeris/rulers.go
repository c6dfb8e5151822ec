package ephemeris

import (
	"github.com/admin/astro-natal/internal/domain"
)

// HouseRuler управитель знака на куспиде дома и где этот управитель сейчас стоит
func (e *Engine) HouseRuler(house domain.House, bodies []domain.BodyPosition) (domain.HouseRuler, error) {
	ruler := domain.TraditionalRuler(house.Sign)
	for _, b := range bodies {
		if b.Body != ruler {
			continue
		}
		return domain.HouseRuler{
			House:          house.Number,
			RulingPlanet:   ruler,
			RulerSign:      b.Sign,
			RulerHouse:     b.House,
			RulerLongitude: b.Longitude,
		}, nil
	}
	return domain.HouseRuler{}, &domain.RulerNotFoundError{Body: ruler}
}

// HouseRulers по одному управителю на каждый дом
func (e *Engine) HouseRulers(houses []domain.House, bodies []domain.BodyPosition) ([]domain.HouseRuler, error) {
	out := make([]domain.HouseRuler, 0, len(houses))
	for _, h := range houses {
		r, err := e.HouseRuler(h, bodies)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
