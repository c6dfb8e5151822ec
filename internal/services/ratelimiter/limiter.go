// Package ratelimiter скользящее окно запросов к платному API и месячный счётчик.
// Состояние хранится во внешнем хранилище и переживает перезапуск процесса.
package ratelimiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/ports/repository"
)

const (
	BackendSQL   = "sql"
	BackendRedis = "redis"
)

type Config struct {
	Name              string        `envconfig:"NAME" default:"astro-api"`
	MaxRequests       int           `envconfig:"MAX_REQUESTS" default:"5"`
	Window            time.Duration `envconfig:"WINDOW" default:"60s"`
	RequestsPerChart  int           `envconfig:"REQUESTS_PER_CHART" default:"1"`
	CreditsPerRequest int           `envconfig:"CREDITS_PER_REQUEST" default:"1"`
	StateBackend      string        `envconfig:"STATE_BACKEND" default:"sql"`
}

// Decision результат проверки лимита
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type Option func(*Limiter)

// WithClock подменяет часы (для тестов)
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// Limiter один экземпляр на ограничитель; все чтения-изменения состояния
// выполняются под одним мьютексом
type Limiter struct {
	mu    sync.Mutex
	cfg   Config
	store repository.ILimiterStateRepo
	now   func() time.Time
	log   *slog.Logger
}

func New(cfg Config, store repository.ILimiterStateRepo, log *slog.Logger, opts ...Option) *Limiter {
	if cfg.Name == "" {
		cfg.Name = "astro-api"
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.RequestsPerChart <= 0 {
		cfg.RequestsPerChart = 1
	}
	if cfg.CreditsPerRequest <= 0 {
		cfg.CreditsPerRequest = 1
	}

	l := &Limiter{
		cfg:   cfg,
		store: store,
		now:   time.Now,
		log:   log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CanMakeRequest проверяет окно, не расходуя слот
func (l *Limiter) CanMakeRequest(ctx context.Context) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	state, err := l.load(ctx)
	if err != nil {
		return Decision{}, err
	}
	l.prune(state, now)
	return l.decide(state, now), nil
}

// RecordRequest фиксирует запрос: метка в окно и +1 к месячному счётчику
func (l *Limiter) RecordRequest(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	state, err := l.load(ctx)
	if err != nil {
		return err
	}
	l.prune(state, now)
	l.record(state, now)
	return l.save(ctx, state)
}

// TryAcquire проверка и запись одним шагом: при отказе слот не расходуется,
// при успехе запрос уже учтён
func (l *Limiter) TryAcquire(ctx context.Context) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	state, err := l.load(ctx)
	if err != nil {
		return Decision{}, err
	}
	l.prune(state, now)

	decision := l.decide(state, now)
	if !decision.Allowed {
		return decision, nil
	}

	l.record(state, now)
	if err := l.save(ctx, state); err != nil {
		return Decision{}, err
	}
	return decision, nil
}

// MonthlyUsage расход за текущий календарный месяц (UTC)
func (l *Limiter) MonthlyUsage(ctx context.Context) (domain.MonthlyUsage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	state, err := l.load(ctx)
	if err != nil {
		return domain.MonthlyUsage{}, err
	}

	month := domain.MonthToken(now)
	if state.MonthToken != month {
		state.MonthToken = month
		state.MonthlyCount = 0
		if err := l.save(ctx, state); err != nil {
			return domain.MonthlyUsage{}, err
		}
	}

	count := state.MonthlyCount
	return domain.MonthlyUsage{
		Month:           month,
		RequestCount:    count,
		EstimatedCharts: (count + l.cfg.RequestsPerChart - 1) / l.cfg.RequestsPerChart,
		CreditsConsumed: count * l.cfg.CreditsPerRequest,
	}, nil
}

func (l *Limiter) decide(state *domain.RateLimiterState, now time.Time) Decision {
	if len(state.Timestamps) < l.cfg.MaxRequests {
		return Decision{Allowed: true}
	}

	oldest := state.Timestamps[0]
	for _, ts := range state.Timestamps[1:] {
		if ts.Before(oldest) {
			oldest = ts
		}
	}
	retryAfter := oldest.Add(l.cfg.Window).Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}
}

// prune оставляет метки строго новее now - window
func (l *Limiter) prune(state *domain.RateLimiterState, now time.Time) {
	cutoff := now.Add(-l.cfg.Window)
	kept := state.Timestamps[:0]
	for _, ts := range state.Timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	state.Timestamps = kept
}

func (l *Limiter) record(state *domain.RateLimiterState, now time.Time) {
	state.Timestamps = append(state.Timestamps, now)

	month := domain.MonthToken(now)
	if state.MonthToken != month {
		l.log.Info("monthly request counter reset",
			"limiter", l.cfg.Name,
			"previous_month", state.MonthToken,
			"previous_count", state.MonthlyCount)
		state.MonthToken = month
		state.MonthlyCount = 0
	}
	state.MonthlyCount++
}

func (l *Limiter) load(ctx context.Context) (*domain.RateLimiterState, error) {
	state, err := l.store.Load(ctx, l.cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("load limiter state: %w", err)
	}
	if state == nil {
		state = &domain.RateLimiterState{}
	}
	return state, nil
}

func (l *Limiter) save(ctx context.Context, state *domain.RateLimiterState) error {
	if err := l.store.Save(ctx, l.cfg.Name, state); err != nil {
		return fmt.Errorf("save limiter state: %w", err)
	}
	return nil
}
