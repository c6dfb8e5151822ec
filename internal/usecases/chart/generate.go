package chart

import (
	"context"
	"errors"
	"fmt"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/pkg/tz"
	"github.com/admin/astro-natal/internal/services/chartcache"
	"github.com/admin/astro-natal/internal/services/ephemeris"
)

// GenerateChart возвращает карту для входа. Без forceRefresh кэш отвечает
// сразу, даже устаревший (устаревание только сообщается через Result.Stale).
// Без сети - последняя карта из кэша или ErrOffline. При исчерпанном лимите -
// QuotaExceededError, слот при этом не расходуется.
func (s *Service) GenerateChart(ctx context.Context, in domain.BirthInput, forceRefresh bool) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	instant, err := tz.BirthInstant(in)
	if err != nil {
		return nil, err
	}

	fingerprint := in.Fingerprint()

	if !forceRefresh {
		if res, ok := s.lookup(ctx, in); ok {
			s.log.Debug("chart served from cache",
				"fingerprint", fingerprint,
				"stale", res.Stale,
			)
			return res, nil
		}
	}

	if !s.connectivity.IsOnline(ctx) {
		if res, ok := s.lookup(ctx, in); ok {
			s.log.Info("offline, serving cached chart",
				"fingerprint", fingerprint,
				"force_refresh", forceRefresh,
			)
			return res, nil
		}
		return nil, domain.ErrOffline
	}

	decision, err := s.limiter.TryAcquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check request limit: %w", err)
	}
	if !decision.Allowed {
		s.log.Info("chart request rejected by limiter",
			"fingerprint", fingerprint,
			"retry_after", decision.RetryAfter,
		)
		return nil, &domain.QuotaExceededError{RetryAfter: decision.RetryAfter}
	}

	snap, err := s.provider.Snapshot(ctx, ephemeris.Request{
		Name:        in.Name,
		Instant:     instant,
		Coordinates: in.Coordinates,
		Location:    in.Location,
		Timezone:    in.Timezone,
		HouseSystem: s.engine.HouseSystem(),
		Bodies:      s.engine.Bodies(),
		Language:    s.cfg.Language,
	})
	if err != nil {
		var decodingErr *domain.DecodingError
		if errors.As(err, &decodingErr) {
			return nil, err
		}
		return nil, &domain.UpstreamError{Cause: err}
	}

	chart, err := s.engine.Derive(in, snap, s.now())
	if err != nil {
		return nil, err
	}

	if snap.Image != nil && s.visuals != nil {
		visualization, err := s.visuals.Save(ctx, fingerprint, snap.Image)
		if err != nil {
			s.log.Warn("failed to store chart visualization",
				"error", err,
				"fingerprint", fingerprint,
			)
		} else {
			chart.Visualization = visualization
		}
	}

	if _, err := s.charts.Save(ctx, chart, in); err != nil {
		s.log.Warn("computed chart was not cached",
			"error", err,
			"fingerprint", fingerprint,
			"chart_id", chart.ID,
		)
		s.alert(ctx, fmt.Sprintf("chart %s was computed but not cached: %v", chart.ID, err))
	}

	if s.events != nil {
		if err := s.events.ChartGenerated(ctx, chart, fingerprint); err != nil {
			s.log.Warn("failed to publish chart event",
				"error", err,
				"fingerprint", fingerprint,
				"chart_id", chart.ID,
			)
		}
	}

	s.log.Info("chart generated",
		"fingerprint", fingerprint,
		"chart_id", chart.ID,
		"bodies", len(chart.Bodies),
		"houses", len(chart.Houses),
		"aspects", len(chart.Aspects),
	)

	return &Result{
		Chart:       chart,
		GeneratedAt: chart.ComputedAt,
	}, nil
}

// lookup промах и ошибка чтения кэша для фасада одинаковы: идём дальше по цепочке
func (s *Service) lookup(ctx context.Context, in domain.BirthInput) (*Result, bool) {
	chart, record, err := s.charts.Find(ctx, in)
	if err != nil {
		if !errors.Is(err, domain.ErrChartNotFound) {
			s.log.Warn("chart cache lookup failed", "error", err, "fingerprint", in.Fingerprint())
		}
		return nil, false
	}
	return s.cachedResult(chart, record), true
}

func (s *Service) cachedResult(chart *domain.NatalChart, record *domain.CachedChartRecord) *Result {
	return &Result{
		Chart:       chart,
		GeneratedAt: record.GeneratedAt,
		FromCache:   true,
		Stale:       s.cfg.MaxAge > 0 && chartcache.IsStale(record, s.now(), s.cfg.MaxAge),
	}
}

func (s *Service) alert(ctx context.Context, message string) {
	if s.alerter == nil {
		return
	}
	if err := s.alerter.SendAlert(ctx, message); err != nil {
		s.log.Warn("failed to send alert", "error", err)
	}
}
