package astroApi

import "time"

type Config struct {
	BaseURL    string        `envconfig:"BASE_URL" default:"https://api.astrology-api.io"`
	ApiVersion string        `envconfig:"VERSION" default:"api/v3"`
	ApiKey     string        `envconfig:"API_KEY"`
	SkipSSL    string        `envconfig:"SKIP_SSL"` // Railway требует строки вместо bool
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"30s"`
	// RPS локальный темп запросов; 0 - без ограничения
	RPS   float64 `envconfig:"RPS" default:"1"`
	Burst int     `envconfig:"BURST" default:"1"`
	// IncludeSVG просить у API изображение карты
	IncludeSVG bool `envconfig:"INCLUDE_SVG" default:"true"`
}

func (c *Config) ShouldSkipSSL() bool {
	return c.SkipSSL == "true" || c.SkipSSL == "1" || c.SkipSSL == "True"
}
