package chart

import (
	"context"
	"fmt"
	"time"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/services/chartcache"
)

const maxListLimit = 100

// GetCachedChart карта из кэша без обращения к сети; ErrChartNotFound, если её нет
func (s *Service) GetCachedChart(ctx context.Context, in domain.BirthInput) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	chart, record, err := s.charts.Find(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.cachedResult(chart, record), nil
}

// CanGenerateChart есть ли свободный слот в окне ограничителя
func (s *Service) CanGenerateChart(ctx context.Context) (bool, error) {
	decision, err := s.limiter.CanMakeRequest(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check request limit: %w", err)
	}
	return decision.Allowed, nil
}

// RetryAfter через сколько освободится слот; nil, если запрос можно делать сейчас
func (s *Service) RetryAfter(ctx context.Context) (*time.Duration, error) {
	decision, err := s.limiter.CanMakeRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check request limit: %w", err)
	}
	if decision.Allowed {
		return nil, nil
	}
	retryAfter := decision.RetryAfter
	return &retryAfter, nil
}

func (s *Service) MonthlyUsage(ctx context.Context) (domain.MonthlyUsage, error) {
	usage, err := s.limiter.MonthlyUsage(ctx)
	if err != nil {
		return domain.MonthlyUsage{}, fmt.Errorf("failed to read monthly usage: %w", err)
	}
	return usage, nil
}

// VisualizationURL временная ссылка на изображение кэшированной карты
func (s *Service) VisualizationURL(ctx context.Context, in domain.BirthInput) (string, error) {
	res, err := s.GetCachedChart(ctx, in)
	if err != nil {
		return "", err
	}
	if s.visuals == nil || res.Chart.Visualization == nil {
		return "", domain.ErrVisualizationNotFound
	}

	url, err := s.visuals.URL(ctx, res.Chart.Visualization)
	if err != nil {
		return "", fmt.Errorf("failed to get visualization url: %w", err)
	}
	return url, nil
}

// ListCached последние карты в кэше (без тела карты) и их общее число
func (s *Service) ListCached(ctx context.Context, limit int) ([]CachedEntry, int64, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	records, total, err := s.charts.Recent(ctx, uint64(limit))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cached charts: %w", err)
	}

	now := s.now()
	entries := make([]CachedEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, CachedEntry{
			Fingerprint: r.Fingerprint,
			ChartID:     r.ChartID.String(),
			GeneratedAt: r.GeneratedAt,
			Stale:       s.cfg.MaxAge > 0 && chartcache.IsStale(r, now, s.cfg.MaxAge),
		})
	}
	return entries, total, nil
}
