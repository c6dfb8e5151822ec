package app

import (
	"context"
	"fmt"
	"net/http"

	server "github.com/admin/astro-natal/internal/adapters/primary/http"
	chartController "github.com/admin/astro-natal/internal/adapters/primary/http/controllers/chart"
	healthcheckController "github.com/admin/astro-natal/internal/adapters/primary/http/controllers/healthcheck"
	kafkaConsumerAdapter "github.com/admin/astro-natal/internal/adapters/primary/kafka"
	kafkaHandlers "github.com/admin/astro-natal/internal/adapters/primary/kafka/handlers"
	alerterAdapter "github.com/admin/astro-natal/internal/adapters/secondary/alerter"
	astroApiAdapter "github.com/admin/astro-natal/internal/adapters/secondary/astroApi"
	"github.com/admin/astro-natal/internal/adapters/secondary/connectivity"
	kafkaAdapter "github.com/admin/astro-natal/internal/adapters/secondary/kafka"
	"github.com/admin/astro-natal/internal/adapters/secondary/storage/inmemory"
	redisAdapter "github.com/admin/astro-natal/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/admin/astro-natal/internal/adapters/secondary/storage/s3"
	"github.com/admin/astro-natal/internal/adapters/secondary/storage/sqldb"
	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/ports/cache"
	"github.com/admin/astro-natal/internal/ports/kafka"
	"github.com/admin/astro-natal/internal/ports/repository"
	"github.com/admin/astro-natal/internal/ports/service"
	chartRepo "github.com/admin/astro-natal/internal/repository/chart"
	limiterRepo "github.com/admin/astro-natal/internal/repository/limiter"
	alerterService "github.com/admin/astro-natal/internal/services/alerter"
	astroApiService "github.com/admin/astro-natal/internal/services/astroApi"
	"github.com/admin/astro-natal/internal/services/chartcache"
	"github.com/admin/astro-natal/internal/services/chartevents"
	"github.com/admin/astro-natal/internal/services/ephemeris"
	jobScheduler "github.com/admin/astro-natal/internal/services/jobs"
	"github.com/admin/astro-natal/internal/services/ratelimiter"
	"github.com/admin/astro-natal/internal/services/visualization"
	chartUsecase "github.com/admin/astro-natal/internal/usecases/chart"
)

type Dependencies struct {
	DB            *sqldb.DB
	HTTPServer    *http.Server
	KafkaProducer kafka.IKafkaProducer
	KafkaConsumer *kafkaConsumerAdapter.Consumer
	Cache         cache.Cache
	JobScheduler  *jobScheduler.Scheduler
}

// initDependencies инициализирует все зависимости приложения
func (a *App) initDependencies(ctx context.Context) (*Dependencies, error) {
	a.applyDefaults()

	db, err := a.initStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	external := a.initExternalServices()

	engine, err := a.initEngine()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init chart engine: %w", err)
	}

	charts := a.initChartCache(db, external.Cache)
	limiter := ratelimiter.New(*a.Cfg.Limiter, a.initLimiterStore(db, external.Cache), a.Log)

	astroAPIClient := astroApiAdapter.NewClient(a.Cfg.AstroAPI, a.Log)
	provider := astroApiService.New(astroAPIClient, a.Cfg.AstroAPI.IncludeSVG)

	probe, err := a.initConnectivity(astroAPIClient)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init connectivity probe: %w", err)
	}

	opts := []chartUsecase.Option{}
	if external.Alerter != nil {
		opts = append(opts, chartUsecase.WithAlerter(external.Alerter))
	}
	if external.Visualizations != nil {
		opts = append(opts, chartUsecase.WithVisualizations(external.Visualizations))
	}
	if external.Producer != nil {
		opts = append(opts, chartUsecase.WithEvents(chartevents.New(external.Producer)))
	}

	charting := chartUsecase.New(
		chartUsecase.Config{
			MaxAge:   a.Cfg.Charts.MaxAge,
			Language: a.Cfg.Charts.Language,
		},
		charts,
		limiter,
		provider,
		probe,
		engine,
		a.Log,
		opts...,
	)

	httpServer := a.initHTTP(db, external.Redis, charting)
	scheduler := a.initJobScheduler(external.Alerter, charts)
	consumer := a.initChartRequestConsumer(charting)

	return &Dependencies{
		DB:            db,
		HTTPServer:    httpServer,
		KafkaProducer: external.Producer,
		KafkaConsumer: consumer,
		Cache:         external.Cache,
		JobScheduler:  scheduler,
	}, nil
}

// applyDefaults подставляет пустые секции конфига, чтобы дальше не проверять nil
func (a *App) applyDefaults() {
	if a.Cfg.Storage == nil {
		a.Cfg.Storage = &sqldb.Config{Driver: sqldb.DriverSQLite, Path: "data/astro-natal.db"}
	}
	if a.Cfg.AstroAPI == nil {
		a.Cfg.AstroAPI = &astroApiAdapter.Config{BaseURL: "https://api.astrology-api.io", ApiVersion: "api/v3"}
	}
	if a.Cfg.Limiter == nil {
		a.Cfg.Limiter = &ratelimiter.Config{}
	}
	if a.Cfg.Charts == nil {
		a.Cfg.Charts = &ChartsConfig{}
	}
	if a.Cfg.Connectivity == nil {
		a.Cfg.Connectivity = &connectivity.Config{}
	}
	if a.Cfg.Server == nil {
		a.Cfg.Server = &server.Config{Port: "8080"}
	}
}

// initStorage открывает базу (SQLite или PostgreSQL) и применяет миграции
func (a *App) initStorage(ctx context.Context) (*sqldb.DB, error) {
	conn, err := a.Cfg.Storage.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", a.Cfg.Storage.Driver, err)
	}

	a.Log.Info("storage connected successfully", "driver", a.Cfg.Storage.Driver)

	db := sqldb.NewDB(conn, a.Cfg.Storage)
	if err := sqldb.RunMigrations(ctx, db, a.Log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// externalServices содержит внешние сервисы (опциональные)
type externalServices struct {
	Alerter        service.IAlerterService
	Cache          cache.Cache
	Redis          *redisAdapter.Client
	Visualizations service.IVisualizationStore
	Producer       kafka.IKafkaProducer
}

// initExternalServices инициализирует опциональные внешние сервисы (Alerter, Redis, S3, Kafka).
// Недоступность любого из них не мешает старту
func (a *App) initExternalServices() *externalServices {
	services := &externalServices{}

	if a.Cfg.Alerter != nil && a.Cfg.Alerter.Enabled {
		alerterClient := alerterAdapter.NewClient(a.Cfg.Alerter, a.Log)
		services.Alerter = alerterService.New(alerterClient, a.Name)
	}

	if a.Cfg.Redis != nil && a.Cfg.Redis.Enabled {
		redisClient, err := a.Cfg.Redis.NewConnection()
		if err != nil {
			a.Log.Warn("failed to init redis cache, continuing with in-memory cache", "error", err)
		} else {
			services.Redis = redisAdapter.NewClient(redisClient, a.Cfg.Redis.KeyPrefix)
			services.Cache = services.Redis
			a.Log.Info("redis cache connected successfully")
		}
	}
	if services.Cache == nil {
		services.Cache = inmemory.NewCache()
	}

	if a.Cfg.S3 != nil && a.Cfg.S3.Enabled {
		minioClient, err := a.Cfg.S3.NewClient()
		if err != nil {
			a.Log.Warn("failed to init s3 storage, chart images will not be stored", "error", err)
		} else {
			s3Client := s3Adapter.NewClient(minioClient, a.Cfg.S3.Bucket, a.Log)
			services.Visualizations = visualization.New(s3Client, a.Cfg.S3.URLTTL, a.Log)
			a.Log.Info("s3 storage connected successfully", "bucket", a.Cfg.S3.Bucket)
		}
	}

	if a.Cfg.Kafka != nil && a.Cfg.Kafka.Enabled {
		producer, err := kafkaAdapter.NewProducer(a.Cfg.Kafka, a.Log)
		if err != nil {
			a.Log.Warn("failed to create kafka producer, chart events disabled", "error", err)
		} else {
			services.Producer = producer
		}
	}

	return services
}

// initEngine движок расчёта карты с системой домов и орбисами из конфига
func (a *App) initEngine() (*ephemeris.Engine, error) {
	houseSystem, err := domain.ParseHouseSystem(a.Cfg.Charts.HouseSystem)
	if err != nil {
		return nil, err
	}

	var orbs map[domain.AspectType]float64
	if a.Cfg.Charts.OrbsFile != "" {
		orbs, err = loadOrbOverrides(a.Cfg.Charts.OrbsFile)
		if err != nil {
			return nil, err
		}
		a.Log.Info("orb overrides loaded", "file", a.Cfg.Charts.OrbsFile, "count", len(orbs))
	}

	return ephemeris.New(ephemeris.Config{
		HouseSystem:  houseSystem,
		IncludeMinor: a.Cfg.Charts.IncludeMinorAspects,
		OrbOverrides: orbs,
	}), nil
}

// initChartCache кэш карт: база - источник истины, hot-кэш ускоряет чтение
func (a *App) initChartCache(db *sqldb.DB, hot cache.Cache) *chartcache.Service {
	return chartcache.New(
		chartRepo.New(db, a.Log),
		a.Log,
		chartcache.WithHotCache(hot, a.Cfg.Charts.HotCacheTTL),
	)
}

// initLimiterStore состояние ограничителя в Redis, если он выбран и доступен, иначе в базе
func (a *App) initLimiterStore(db *sqldb.DB, kv cache.Cache) repository.ILimiterStateRepo {
	if a.Cfg.Limiter.StateBackend == ratelimiter.BackendRedis {
		if _, isRedis := kv.(*redisAdapter.Client); isRedis {
			return limiterRepo.NewKV(kv, a.Log)
		}
		a.Log.Warn("redis limiter backend requested but redis is unavailable, using sql storage")
	}
	return limiterRepo.New(db, a.Log)
}

func (a *App) initConnectivity(client *astroApiAdapter.Client) (service.IConnectivity, error) {
	address := a.Cfg.Connectivity.Address
	if address == "" {
		var err error
		address, err = client.DialAddress()
		if err != nil {
			return nil, err
		}
	}
	return connectivity.NewProbe(address, a.Cfg.Connectivity.Timeout, a.Log), nil
}

// initHTTP инициализирует HTTP сервер и контроллеры
func (a *App) initHTTP(db *sqldb.DB, rdb *redisAdapter.Client, charting *chartUsecase.Service) *http.Server {
	checks := []healthcheckController.Check{
		{Name: "storage", Ping: db.Db.PingContext},
	}
	if rdb != nil {
		checks = append(checks, healthcheckController.Check{Name: "redis", Ping: rdb.Ping})
	}

	controllers := []server.Controller{
		healthcheckController.New(a.Name, a.Log, checks...),
		chartController.New(charting, a.Log),
	}

	return server.NewHTTPServer(a.Cfg.Server, a.Log, controllers...)
}

// initChartRequestConsumer consumer заявок на расчёт, если задан KAFKA_REQUESTS_TOPIC
func (a *App) initChartRequestConsumer(charting *chartUsecase.Service) *kafkaConsumerAdapter.Consumer {
	if a.Cfg.Kafka == nil || !a.Cfg.Kafka.Enabled || a.Cfg.Kafka.RequestsTopic == "" {
		return nil
	}

	handler := kafkaHandlers.NewChartRequestHandler(charting, a.Cfg.Kafka.RequestsRetryDelay, a.Log)
	consumer, err := kafkaConsumerAdapter.NewConsumer(a.Cfg.Kafka, handler, a.Log)
	if err != nil {
		a.Log.Warn("failed to create kafka consumer, chart requests disabled", "error", err)
		return nil
	}
	return consumer
}

// initJobScheduler инициализирует планировщик джоб
func (a *App) initJobScheduler(alerterSvc service.IAlerterService, charts *chartcache.Service) *jobScheduler.Scheduler {
	scheduler := jobScheduler.NewScheduler(a.Log, alerterSvc)

	if a.Cfg.Charts.EvictAfterDays > 0 {
		scheduler.Register(jobScheduler.NewCacheEvictor(charts, a.Cfg.Charts.EvictAfterDays, a.Log))
		a.Log.Info("cache evictor job registered", "evict_after_days", a.Cfg.Charts.EvictAfterDays)
	}

	return scheduler
}
