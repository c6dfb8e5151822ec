package domain

import (
	"fmt"
	"math"
	"strings"
)

// Sign знак зодиака, 0 = Овен ... 11 = Рыбы
type Sign int

const (
	Aries Sign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

var signNames = [12]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// Signs возвращает все 12 знаков в зодиакальном порядке
func Signs() []Sign {
	out := make([]Sign, 12)
	for i := range out {
		out[i] = Sign(i)
	}
	return out
}

func (s Sign) IsValid() bool {
	return s >= Aries && s <= Pisces
}

func (s Sign) String() string {
	if !s.IsValid() {
		return fmt.Sprintf("Sign(%d)", int(s))
	}
	return signNames[s]
}

func (s Sign) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid sign %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Sign) UnmarshalText(text []byte) error {
	parsed, err := ParseSign(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSign разбирает название знака из словаря внешнего API.
// Принимает полное имя или трёхбуквенное сокращение без учёта регистра ("Sco", "scorpio").
// Неизвестное значение - ошибка, никакого дефолта на Овен.
func ParseSign(raw string) (Sign, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	switch key {
	case "ari", "aries":
		return Aries, nil
	case "tau", "taurus":
		return Taurus, nil
	case "gem", "gemini":
		return Gemini, nil
	case "can", "cancer":
		return Cancer, nil
	case "leo":
		return Leo, nil
	case "vir", "virgo":
		return Virgo, nil
	case "lib", "libra":
		return Libra, nil
	case "sco", "scorpio":
		return Scorpio, nil
	case "sag", "sagittarius":
		return Sagittarius, nil
	case "cap", "capricorn":
		return Capricorn, nil
	case "aqu", "aquarius":
		return Aquarius, nil
	case "pis", "pisces":
		return Pisces, nil
	}
	return 0, fmt.Errorf("unknown zodiac sign %q", raw)
}

// WrapDegree приводит угол к диапазону [0, 360)
func WrapDegree(deg float64) float64 {
	w := math.Mod(deg, 360)
	if w < 0 {
		w += 360
	}
	// math.Mod(-1e-15, 360) + 360 даёт ровно 360
	if w >= 360 {
		w = 0
	}
	return w
}

// SignOf знак для эклиптической долготы: wrap(longitude) / 30
func SignOf(longitude float64) Sign {
	return Sign(int(WrapDegree(longitude) / 30))
}

// Body небесное тело карты
type Body int

const (
	Sun Body = iota
	Moon
	Mercury
	Venus
	Mars
	Jupiter
	Saturn
	Uranus
	Neptune
	Pluto
	TrueNode
	SouthNode
	Lilith
)

var bodyNames = [...]string{
	"Sun", "Moon", "Mercury", "Venus", "Mars", "Jupiter", "Saturn",
	"Uranus", "Neptune", "Pluto", "True_Node", "South_Node", "Lilith",
}

// ClassicalPlanets десять планет, присутствующих в любой карте
func ClassicalPlanets() []Body {
	return []Body{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto}
}

// DefaultBodies набор тел по умолчанию: планеты и оба лунных узла
func DefaultBodies() []Body {
	return append(ClassicalPlanets(), TrueNode, SouthNode)
}

func (b Body) IsValid() bool {
	return b >= Sun && b <= Lilith
}

// IsPoint true для расчётных точек (узлы, Лилит)
func (b Body) IsPoint() bool {
	return b == TrueNode || b == SouthNode || b == Lilith
}

func (b Body) String() string {
	if !b.IsValid() {
		return fmt.Sprintf("Body(%d)", int(b))
	}
	return bodyNames[b]
}

func (b Body) MarshalText() ([]byte, error) {
	if !b.IsValid() {
		return nil, fmt.Errorf("invalid body %d", int(b))
	}
	return []byte(b.String()), nil
}

func (b *Body) UnmarshalText(text []byte) error {
	parsed, err := ParseBody(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBody разбирает имя тела из словаря внешнего API ("Sun", "true node", "Mean_Lilith").
func ParseBody(raw string) (Body, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	switch key {
	case "sun":
		return Sun, nil
	case "moon":
		return Moon, nil
	case "mercury":
		return Mercury, nil
	case "venus":
		return Venus, nil
	case "mars":
		return Mars, nil
	case "jupiter":
		return Jupiter, nil
	case "saturn":
		return Saturn, nil
	case "uranus":
		return Uranus, nil
	case "neptune":
		return Neptune, nil
	case "pluto":
		return Pluto, nil
	case "truenode", "northnode", "node", "truenorthnode", "meannode":
		return TrueNode, nil
	case "southnode", "truesouthnode", "meansouthnode":
		return SouthNode, nil
	case "lilith", "meanlilith", "blackmoon", "blackmoonlilith":
		return Lilith, nil
	}
	return 0, fmt.Errorf("unknown celestial body %q", raw)
}

// traditionalRulers классическое управление: один управитель на знак
var traditionalRulers = [12]Body{
	Aries:       Mars,
	Taurus:      Venus,
	Gemini:      Mercury,
	Cancer:      Moon,
	Leo:         Sun,
	Virgo:       Mercury,
	Libra:       Venus,
	Scorpio:     Mars,
	Sagittarius: Jupiter,
	Capricorn:   Saturn,
	Aquarius:    Saturn,
	Pisces:      Jupiter,
}

// TraditionalRuler управитель знака по классической таблице
func TraditionalRuler(s Sign) Body {
	return traditionalRulers[s]
}
