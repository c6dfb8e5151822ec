package jobs

import (
	"context"
	"log/slog"
	"time"
)

const cacheEvictorName = "cache-evictor"

type chartEvictor interface {
	EvictOlderThan(ctx context.Context, days int, referenceTime time.Time) (int64, error)
}

// CacheEvictor удаляет из кэша карты старше days суток, каждый день в 03:00 UTC
type CacheEvictor struct {
	charts chartEvictor
	days   int
	log    *slog.Logger
}

func NewCacheEvictor(charts chartEvictor, days int, log *slog.Logger) *CacheEvictor {
	return &CacheEvictor{
		charts: charts,
		days:   days,
		log:    log,
	}
}

func (j *CacheEvictor) Name() string {
	return cacheEvictorName
}

// NextRun каждый день в 03:00 UTC
func (j *CacheEvictor) NextRun(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

func (j *CacheEvictor) Run(ctx context.Context) error {
	deleted, err := j.charts.EvictOlderThan(ctx, j.days, time.Now())
	if err != nil {
		return err
	}
	j.log.Debug("cache eviction finished", "deleted", deleted, "days", j.days)
	return nil
}
