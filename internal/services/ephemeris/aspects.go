package ephemeris

import (
	"math"
	"sort"

	"github.com/admin/astro-natal/internal/domain"
)

// applyingStep шаг по времени (сутки) для определения сходящегося аспекта
const applyingStep = 1.0 / 24

// Aspects аспекты для всех неупорядоченных пар тел. На пару - не больше одного
// аспекта, ближайшего к точному. Результат отсортирован по орбису, при равенстве
// сохраняется порядок пар. overrides сужают орбисы, но никогда не расширяют.
func (e *Engine) Aspects(bodies []domain.BodyPosition, overrides map[domain.AspectType]float64) []domain.Aspect {
	orbs := tighten(e.orbs, overrides)

	out := make([]domain.Aspect, 0)
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			a, b := bodies[i], bodies[j]
			sep := Separation(a.Longitude, b.Longitude)

			var (
				best    domain.AspectType
				bestOrb float64
				found   bool
			)
			for _, t := range e.aspectTypes {
				maxOrb := orbs[t]
				orb := math.Abs(sep - t.Angle())
				if orb > maxOrb {
					continue
				}
				if !found || orb < bestOrb {
					best, bestOrb, found = t, orb, true
				}
			}
			if !found {
				continue
			}

			out = append(out, domain.Aspect{
				First:      a.Body,
				Second:     b.Body,
				Type:       best,
				Orb:        clamp(bestOrb, 0, orbs[best]),
				IsApplying: isApplying(a, b, best.Angle()),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Orb < out[j].Orb
	})
	return out
}

// Separation кратчайшая дуга между долготами, [0, 180]
func Separation(a, b float64) float64 {
	d := math.Abs(domain.WrapDegree(a) - domain.WrapDegree(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// isApplying орбис уменьшается при движении тел с текущими скоростями
func isApplying(a, b domain.BodyPosition, angle float64) bool {
	now := math.Abs(Separation(a.Longitude, b.Longitude) - angle)
	next := math.Abs(Separation(a.Longitude+a.Speed*applyingStep, b.Longitude+b.Speed*applyingStep) - angle)
	return next < now
}

// tighten возвращает копию base, где каждый орбис заменён на min(base, override)
func tighten(base, overrides map[domain.AspectType]float64) map[domain.AspectType]float64 {
	out := make(map[domain.AspectType]float64, len(base))
	for t, orb := range base {
		out[t] = orb
		override, ok := overrides[t]
		if !ok || math.IsNaN(override) {
			continue
		}
		if override < 0 {
			override = 0
		}
		if override < orb {
			out[t] = override
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
