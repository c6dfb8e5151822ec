package domain

import (
	"fmt"
	"strings"
)

// AspectType тип аспекта
type AspectType int

const (
	Conjunction AspectType = iota
	Opposition
	Trine
	Square
	Sextile
	Semisextile
	Semisquare
	Sesquiquadrate
	Quincunx
)

type aspectSpec struct {
	name   string
	angle  float64
	maxOrb float64
	minor  bool
}

var aspectSpecs = [...]aspectSpec{
	Conjunction:    {name: "conjunction", angle: 0, maxOrb: 8},
	Opposition:     {name: "opposition", angle: 180, maxOrb: 8},
	Trine:          {name: "trine", angle: 120, maxOrb: 7},
	Square:         {name: "square", angle: 90, maxOrb: 7},
	Sextile:        {name: "sextile", angle: 60, maxOrb: 5},
	Semisextile:    {name: "semisextile", angle: 30, maxOrb: 2, minor: true},
	Semisquare:     {name: "semisquare", angle: 45, maxOrb: 2, minor: true},
	Sesquiquadrate: {name: "sesquiquadrate", angle: 135, maxOrb: 2, minor: true},
	Quincunx:       {name: "quincunx", angle: 150, maxOrb: 3, minor: true},
}

// MajorAspects пять птолемеевых аспектов
func MajorAspects() []AspectType {
	return []AspectType{Conjunction, Opposition, Trine, Square, Sextile}
}

// AllAspects мажорные и минорные аспекты
func AllAspects() []AspectType {
	return append(MajorAspects(), Semisextile, Semisquare, Sesquiquadrate, Quincunx)
}

func (a AspectType) IsValid() bool {
	return a >= Conjunction && a <= Quincunx
}

func (a AspectType) String() string {
	if !a.IsValid() {
		return fmt.Sprintf("AspectType(%d)", int(a))
	}
	return aspectSpecs[a].name
}

// Angle точный угол аспекта
func (a AspectType) Angle() float64 { return aspectSpecs[a].angle }

// DefaultMaxOrb орбис по умолчанию
func (a AspectType) DefaultMaxOrb() float64 { return aspectSpecs[a].maxOrb }

func (a AspectType) IsMinor() bool { return aspectSpecs[a].minor }

func (a AspectType) MarshalText() ([]byte, error) {
	if !a.IsValid() {
		return nil, fmt.Errorf("invalid aspect type %d", int(a))
	}
	return []byte(a.String()), nil
}

func (a *AspectType) UnmarshalText(text []byte) error {
	parsed, err := ParseAspectType(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAspectType разбирает название аспекта; неизвестное - ошибка
func ParseAspectType(raw string) (AspectType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "conjunction", "conj":
		return Conjunction, nil
	case "opposition", "opp":
		return Opposition, nil
	case "trine", "tri":
		return Trine, nil
	case "square", "sqr", "squ":
		return Square, nil
	case "sextile", "sex", "sxt":
		return Sextile, nil
	case "semisextile", "semi-sextile":
		return Semisextile, nil
	case "semisquare", "semi-square":
		return Semisquare, nil
	case "sesquiquadrate", "sesquisquare":
		return Sesquiquadrate, nil
	case "quincunx", "inconjunct":
		return Quincunx, nil
	}
	return 0, fmt.Errorf("unknown aspect type %q", raw)
}

// HouseSystem система домов
type HouseSystem string

const (
	Placidus      HouseSystem = "placidus"
	Koch          HouseSystem = "koch"
	WholeSign     HouseSystem = "whole_sign"
	Equal         HouseSystem = "equal"
	Regiomontanus HouseSystem = "regiomontanus"
	Campanus      HouseSystem = "campanus"
	Porphyry      HouseSystem = "porphyry"
)

// Code однобуквенный код системы во внешнем API
func (h HouseSystem) Code() string {
	switch h {
	case Koch:
		return "K"
	case WholeSign:
		return "W"
	case Equal:
		return "A"
	case Regiomontanus:
		return "R"
	case Campanus:
		return "C"
	case Porphyry:
		return "O"
	default:
		return "P"
	}
}

// ParseHouseSystem пустая строка - Плацидус
func ParseHouseSystem(raw string) (HouseSystem, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "placidus", "p":
		return Placidus, nil
	case "koch", "k":
		return Koch, nil
	case "whole_sign", "wholesign", "whole-sign", "w":
		return WholeSign, nil
	case "equal", "a":
		return Equal, nil
	case "regiomontanus", "r":
		return Regiomontanus, nil
	case "campanus", "c":
		return Campanus, nil
	case "porphyry", "o":
		return Porphyry, nil
	}
	return "", fmt.Errorf("unknown house system %q", raw)
}
