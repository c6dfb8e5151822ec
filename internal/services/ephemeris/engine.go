// Package ephemeris превращает сырые эфемериды в согласованную натальную карту:
// знаки, дома, аспекты и управители. Пакет без состояния, вызовы безопасны
// из любых горутин.
package ephemeris

import (
	"fmt"
	"math"
	"time"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/google/uuid"
)

// cuspTolerance допуск при проверке, что куспиды замыкают полный круг
const cuspTolerance = 1e-6

type Config struct {
	Bodies       []domain.Body
	HouseSystem  domain.HouseSystem
	IncludeMinor bool
	// OrbOverrides могут только сузить орбисы по умолчанию
	OrbOverrides map[domain.AspectType]float64
}

type Engine struct {
	bodies      []domain.Body
	houseSystem domain.HouseSystem
	aspectTypes []domain.AspectType
	orbs        map[domain.AspectType]float64
}

// New создаёт движок; пустой Config - планеты с узлами, Плацидус, мажорные аспекты
func New(cfg Config) *Engine {
	bodies := cfg.Bodies
	if len(bodies) == 0 {
		bodies = domain.DefaultBodies()
	}

	seen := make(map[domain.Body]bool, len(bodies))
	unique := make([]domain.Body, 0, len(bodies))
	for _, b := range bodies {
		if !b.IsValid() || seen[b] {
			continue
		}
		seen[b] = true
		unique = append(unique, b)
	}

	houseSystem := cfg.HouseSystem
	if houseSystem == "" {
		houseSystem = domain.Placidus
	}

	aspectTypes := domain.MajorAspects()
	if cfg.IncludeMinor {
		aspectTypes = domain.AllAspects()
	}

	orbs := make(map[domain.AspectType]float64, len(aspectTypes))
	for _, t := range aspectTypes {
		orbs[t] = t.DefaultMaxOrb()
	}
	orbs = tighten(orbs, cfg.OrbOverrides)

	return &Engine{
		bodies:      unique,
		houseSystem: houseSystem,
		aspectTypes: aspectTypes,
		orbs:        orbs,
	}
}

// Bodies набор тел, которые движок кладёт в карту
func (e *Engine) Bodies() []domain.Body {
	return append([]domain.Body(nil), e.bodies...)
}

func (e *Engine) HouseSystem() domain.HouseSystem {
	return e.houseSystem
}

// MaxOrb действующий максимальный орбис типа аспекта
func (e *Engine) MaxOrb(t domain.AspectType) float64 {
	return e.orbs[t]
}

// BodyPosition положение одного тела: знак по долготе, ретроградность по скорости.
// Южный узел достраивается из истинного, если поставщик его не прислал.
func (e *Engine) BodyPosition(snap *Snapshot, body domain.Body) (domain.BodyPosition, error) {
	raw, ok := snap.Bodies[body]
	if !ok && body == domain.SouthNode {
		north, hasNorth := snap.Bodies[domain.TrueNode]
		if hasNorth {
			raw = RawBody{
				Longitude: north.Longitude + 180,
				Latitude:  -north.Latitude,
				Speed:     north.Speed,
			}
			if north.RetrogradeHint != nil {
				hint := *north.RetrogradeHint
				raw.RetrogradeHint = &hint
			}
			ok = true
		}
	}
	if !ok {
		return domain.BodyPosition{}, &domain.DecodingError{Cause: fmt.Errorf("provider returned no data for %s", body)}
	}
	if math.IsNaN(raw.Longitude) || math.IsInf(raw.Longitude, 0) {
		return domain.BodyPosition{}, &domain.DecodingError{Cause: fmt.Errorf("invalid longitude for %s", body)}
	}

	lon := domain.WrapDegree(raw.Longitude)
	retrograde := raw.Speed < 0
	if raw.Speed == 0 && raw.RetrogradeHint != nil {
		retrograde = *raw.RetrogradeHint
	}

	return domain.BodyPosition{
		Body:         body,
		Longitude:    lon,
		Latitude:     raw.Latitude,
		Sign:         domain.SignOf(lon),
		IsRetrograde: retrograde,
		Speed:        raw.Speed,
	}, nil
}

// AllBodies ровно одна запись на каждое тело набора, в порядке набора
func (e *Engine) AllBodies(snap *Snapshot) ([]domain.BodyPosition, error) {
	out := make([]domain.BodyPosition, 0, len(e.bodies))
	for _, b := range e.bodies {
		pos, err := e.BodyPosition(snap, b)
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, nil
}

// Houses 12 домов в порядке куспидов плюс асцендент и MC.
// Без куспидов возвращает пустой список: карта деградирует, а не падает.
func (e *Engine) Houses(snap *Snapshot) (ascendant, midheaven float64, houses []domain.House, err error) {
	if snap.Ascendant != nil {
		ascendant = domain.WrapDegree(*snap.Ascendant)
	}
	if snap.Midheaven != nil {
		midheaven = domain.WrapDegree(*snap.Midheaven)
	}

	if len(snap.Cusps) == 0 {
		return ascendant, midheaven, []domain.House{}, nil
	}
	if len(snap.Cusps) != 12 {
		return 0, 0, nil, &domain.DecodingError{Cause: fmt.Errorf("expected 12 house cusps, got %d", len(snap.Cusps))}
	}

	cusps := make([]float64, 12)
	for i, c := range snap.Cusps {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return 0, 0, nil, &domain.DecodingError{Cause: fmt.Errorf("invalid cusp %d", i+1)}
		}
		cusps[i] = domain.WrapDegree(c)
	}
	if err := checkCuspOrder(cusps); err != nil {
		return 0, 0, nil, &domain.DecodingError{Cause: err}
	}

	houses = make([]domain.House, 12)
	for i, c := range cusps {
		houses[i] = domain.House{Number: i + 1, Longitude: c, Sign: domain.SignOf(c)}
	}

	if snap.Ascendant == nil {
		ascendant = cusps[0]
	}
	if snap.Midheaven == nil {
		midheaven = cusps[9]
	}
	return ascendant, midheaven, houses, nil
}

// checkCuspOrder куспиды идут по кругу против часовой и замыкают ровно 360°
func checkCuspOrder(cusps []float64) error {
	total := 0.0
	for i := range cusps {
		span := arc(cusps[i], cusps[(i+1)%len(cusps)])
		if span <= 0 {
			return fmt.Errorf("house %d has empty span", i+1)
		}
		total += span
	}
	if math.Abs(total-360) > cuspTolerance {
		return fmt.Errorf("house cusps are out of order: spans sum to %.6f", total)
	}
	return nil
}

// arc дуга от from до to по ходу зодиака, [0, 360)
func arc(from, to float64) float64 {
	return domain.WrapDegree(to - from)
}

// HousePlacement дом, в диапазон [cusp[n], cusp[n+1]) которого попадает долгота
func (e *Engine) HousePlacement(longitude float64, houses []domain.House) (int, error) {
	if len(houses) != 12 {
		return 0, fmt.Errorf("house placement needs 12 houses, got %d", len(houses))
	}
	lon := domain.WrapDegree(longitude)
	for i, h := range houses {
		next := houses[(i+1)%12]
		if arc(h.Longitude, lon) < arc(h.Longitude, next.Longitude) {
			return h.Number, nil
		}
	}
	return 0, fmt.Errorf("longitude %.6f does not fall into any house", lon)
}

// Derive собирает карту из снимка поставщика. computedAt передаётся снаружи,
// чтобы функция оставалась чистой
func (e *Engine) Derive(in domain.BirthInput, snap *Snapshot, computedAt time.Time) (*domain.NatalChart, error) {
	if snap == nil {
		return nil, &domain.DecodingError{Cause: fmt.Errorf("empty ephemeris snapshot")}
	}

	bodies, err := e.AllBodies(snap)
	if err != nil {
		return nil, err
	}

	asc, mc, houses, err := e.Houses(snap)
	if err != nil {
		return nil, err
	}

	for i := range bodies {
		if len(houses) == 12 {
			n, err := e.HousePlacement(bodies[i].Longitude, houses)
			if err != nil {
				return nil, &domain.DecodingError{Cause: err}
			}
			bodies[i].House = n
			continue
		}
		if hint := snap.Bodies[bodies[i].Body].HouseHint; hint >= 1 && hint <= 12 {
			bodies[i].House = hint
		}
	}

	rulers := []domain.HouseRuler{}
	if len(houses) == 12 {
		rulers, err = e.HouseRulers(houses, bodies)
		if err != nil {
			return nil, err
		}
	}

	var coords *domain.Coordinates
	if in.Coordinates != nil {
		c := *in.Coordinates
		coords = &c
	}

	return &domain.NatalChart{
		ID:           uuid.New(),
		BirthDate:    in.Date,
		BirthTime:    in.Time,
		BirthInstant: snap.Instant.UTC(),
		Coordinates:  coords,
		Location:     in.Location,
		HouseSystem:  e.houseSystem,
		Bodies:       bodies,
		Houses:       houses,
		Aspects:      e.Aspects(bodies, nil),
		HouseRulers:  rulers,
		Ascendant:    asc,
		Midheaven:    mc,
		ComputedAt:   computedAt.UTC(),
	}, nil
}
