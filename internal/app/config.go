package app

import (
	"time"

	server "github.com/admin/astro-natal/internal/adapters/primary/http"
	alerterAdapter "github.com/admin/astro-natal/internal/adapters/secondary/alerter"
	astroApi "github.com/admin/astro-natal/internal/adapters/secondary/astroApi"
	"github.com/admin/astro-natal/internal/adapters/secondary/connectivity"
	kafkaAdapter "github.com/admin/astro-natal/internal/adapters/secondary/kafka"
	redisAdapter "github.com/admin/astro-natal/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/admin/astro-natal/internal/adapters/secondary/storage/s3"
	"github.com/admin/astro-natal/internal/adapters/secondary/storage/sqldb"
	"github.com/admin/astro-natal/internal/pkg/logger"
	"github.com/admin/astro-natal/internal/services/ratelimiter"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Storage      *sqldb.Config          `envconfig:"STORAGE"`
	Redis        *redisAdapter.Config   `envconfig:"REDIS"`
	S3           *s3Adapter.Config      `envconfig:"S3"`
	Kafka        *kafkaAdapter.Config   `envconfig:"KAFKA"`
	Alerter      *alerterAdapter.Config `envconfig:"ALERTER"`
	AstroAPI     *astroApi.Config       `envconfig:"ASTRO_API"`
	Server       *server.Config         `envconfig:"APISERVER"`
	Log          *logger.Config         `envconfig:"LOG"`
	Limiter      *ratelimiter.Config    `envconfig:"LIMITER"`
	Charts       *ChartsConfig          `envconfig:"CHARTS"`
	Connectivity *connectivity.Config   `envconfig:"CONNECTIVITY"`
}

// ChartsConfig настройки расчёта и кэширования карт
type ChartsConfig struct {
	MaxAge              time.Duration `envconfig:"MAX_AGE" default:"720h"`
	EvictAfterDays      int           `envconfig:"EVICT_AFTER_DAYS" default:"90"`
	HouseSystem         string        `envconfig:"HOUSE_SYSTEM" default:"placidus"`
	IncludeMinorAspects bool          `envconfig:"INCLUDE_MINOR_ASPECTS" default:"false"`
	OrbsFile            string        `envconfig:"ORBS_FILE"`
	Language            string        `envconfig:"LANGUAGE" default:"en"`
	HotCacheTTL         time.Duration `envconfig:"HOT_CACHE_TTL" default:"24h"`
}

func NewEnvConfig(envPrefix string) (*Config, error) {
	cfg := &Config{}

	_ = godotenv.Load("deployments/local/.env")

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
