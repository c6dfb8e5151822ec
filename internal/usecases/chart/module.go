// Package chart фасад генерации натальной карты: кэш, сеть, лимит, внешний
// сервис, расчёт и запись обратно в кэш.
package chart

import (
	"context"
	"time"

	"log/slog"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/ports/service"
	"github.com/admin/astro-natal/internal/services/ephemeris"
	"github.com/admin/astro-natal/internal/services/ratelimiter"
)

// Config настройки фасада
type Config struct {
	// MaxAge после этого возраста кэшированная карта помечается устаревшей
	MaxAge   time.Duration
	Language string
}

type chartStore interface {
	Save(ctx context.Context, chart *domain.NatalChart, in domain.BirthInput) (*domain.CachedChartRecord, error)
	Find(ctx context.Context, in domain.BirthInput) (*domain.NatalChart, *domain.CachedChartRecord, error)
	Recent(ctx context.Context, limit uint64) ([]*domain.CachedChartRecord, int64, error)
}

type requestLimiter interface {
	CanMakeRequest(ctx context.Context) (ratelimiter.Decision, error)
	TryAcquire(ctx context.Context) (ratelimiter.Decision, error)
	MonthlyUsage(ctx context.Context) (domain.MonthlyUsage, error)
}

// Result карта и признаки её происхождения
type Result struct {
	Chart       *domain.NatalChart
	GeneratedAt time.Time
	FromCache   bool
	Stale       bool
}

// CachedEntry краткая запись о карте в кэше
type CachedEntry struct {
	Fingerprint string    `json:"fingerprint"`
	ChartID     string    `json:"chart_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Stale       bool      `json:"stale"`
}

type Option func(*Service)

// WithVisualizations сохранять изображения карт во внешнее хранилище
func WithVisualizations(store service.IVisualizationStore) Option {
	return func(s *Service) {
		s.visuals = store
	}
}

// WithEvents публиковать событие о каждой свежей карте
func WithEvents(events service.IChartEvents) Option {
	return func(s *Service) {
		s.events = events
	}
}

// WithAlerter алерты о несохранённых картах
func WithAlerter(alerter service.IAlerterService) Option {
	return func(s *Service) {
		s.alerter = alerter
	}
}

// WithClock подменяет часы (для тестов)
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service безопасен для одновременных вызовов: собственного изменяемого
// состояния нет, ограничитель сериализует доступ к своему состоянию сам
type Service struct {
	cfg          Config
	charts       chartStore
	limiter      requestLimiter
	provider     service.IEphemerisProvider
	connectivity service.IConnectivity
	engine       *ephemeris.Engine
	visuals      service.IVisualizationStore
	events       service.IChartEvents
	alerter      service.IAlerterService
	now          func() time.Time
	log          *slog.Logger
}

func New(
	cfg Config,
	charts chartStore,
	limiter requestLimiter,
	provider service.IEphemerisProvider,
	connectivity service.IConnectivity,
	engine *ephemeris.Engine,
	log *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		cfg:          cfg,
		charts:       charts,
		limiter:      limiter,
		provider:     provider,
		connectivity: connectivity,
		engine:       engine,
		now:          time.Now,
		log:          log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
