// Package chartcache долговременный кэш рассчитанных карт по отпечатку входа.
// SQL-хранилище - источник истины, cache.Cache (Redis) - необязательный горячий слой.
package chartcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/ports/cache"
	"github.com/admin/astro-natal/internal/ports/persistence"
	"github.com/admin/astro-natal/internal/ports/repository"
)

const hotKeyPrefix = "chart:"

type Option func(*Service)

// WithHotCache включает горячий слой перед SQL
func WithHotCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.hot = c
		s.hotTTL = ttl
	}
}

// Service запись в SQL и обновление горячего слоя по одному отпечатку
// выполняются под одной блокировкой, поэтому горячий слой не расходится с SQL
type Service struct {
	keys   keyedMutex
	repo   repository.IChartRepo
	hot    cache.Cache
	hotTTL time.Duration
	log    *slog.Logger
}

func New(repo repository.IChartRepo, log *slog.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save сохраняет карту под отпечатком входа одной транзакцией:
// существующая запись перезаписывается целиком, последний писатель выигрывает
func (s *Service) Save(ctx context.Context, chart *domain.NatalChart, in domain.BirthInput) (*domain.CachedChartRecord, error) {
	data, err := json.Marshal(chart)
	if err != nil {
		return nil, &domain.CachePersistError{Cause: fmt.Errorf("encode chart: %w", err)}
	}

	record := &domain.CachedChartRecord{
		Fingerprint: in.Fingerprint(),
		ChartID:     chart.ID,
		Chart:       data,
		GeneratedAt: chart.ComputedAt.UTC(),
	}

	unlock := s.keys.lock(record.Fingerprint)
	defer unlock()

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		return s.repo.UpsertTx(ctx, tx, record)
	})
	if err != nil {
		return nil, &domain.CachePersistError{Cause: err}
	}

	s.putHot(ctx, record)
	return record, nil
}

// Find самая свежая карта для входа; ErrChartNotFound, если её нет
func (s *Service) Find(ctx context.Context, in domain.BirthInput) (*domain.NatalChart, *domain.CachedChartRecord, error) {
	fingerprint := in.Fingerprint()

	record, ok := s.getHot(ctx, fingerprint)
	if !ok {
		var err error
		record, err = s.loadAndWarm(ctx, fingerprint)
		if err != nil {
			return nil, nil, err
		}
	}

	var chart domain.NatalChart
	if err := json.Unmarshal(record.Chart, &chart); err != nil {
		return nil, nil, &domain.DecodingError{Cause: fmt.Errorf("cached chart %s: %w", fingerprint, err)}
	}
	return &chart, record, nil
}

// loadAndWarm читает SQL и кладёт запись в горячий слой под блокировкой отпечатка,
// чтобы параллельный Save не был перезаписан более старой строкой
func (s *Service) loadAndWarm(ctx context.Context, fingerprint string) (*domain.CachedChartRecord, error) {
	unlock := s.keys.lock(fingerprint)
	defer unlock()

	record, err := s.repo.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	s.putHot(ctx, record)
	return record, nil
}

// Recent последние limit записей (новые первыми) и общее число записей в кэше
func (s *Service) Recent(ctx context.Context, limit uint64) ([]*domain.CachedChartRecord, int64, error) {
	records, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// IsStale referenceTime - generatedAt > maxAge
func IsStale(record *domain.CachedChartRecord, referenceTime time.Time, maxAge time.Duration) bool {
	return record.Age(referenceTime) > maxAge
}

// EvictOlderThan удаляет записи старше days суток; если удалять нечего,
// транзакция откатывается без записи
func (s *Service) EvictOlderThan(ctx context.Context, days int, referenceTime time.Time) (int64, error) {
	cutoff := referenceTime.Add(-time.Duration(days) * 24 * time.Hour)

	var (
		stale   []string
		deleted int64
	)
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		var err error
		stale, err = s.repo.FingerprintsOlderThanTx(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			return errNothingToEvict
		}
		deleted, err = s.repo.DeleteOlderThanTx(ctx, tx, cutoff)
		return err
	})
	if errors.Is(err, errNothingToEvict) {
		s.log.Debug("no stale charts to evict", "days", days)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("evict charts older than %d days: %w", days, err)
	}

	s.dropHot(ctx, stale)
	s.log.Info("stale charts evicted", "deleted", deleted, "days", days, "cutoff", cutoff)
	return deleted, nil
}

var errNothingToEvict = errors.New("nothing to evict")

type hotRecord struct {
	ChartID     string          `json:"chart_id"`
	Chart       json.RawMessage `json:"chart"`
	GeneratedAt time.Time       `json:"generated_at"`
}

func (s *Service) getHot(ctx context.Context, fingerprint string) (*domain.CachedChartRecord, bool) {
	if s.hot == nil {
		return nil, false
	}
	raw, err := s.hot.Get(ctx, hotKeyPrefix+fingerprint)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("hot cache read failed", "error", err, "fingerprint", fingerprint)
		}
		return nil, false
	}

	var hr hotRecord
	if err := json.Unmarshal([]byte(raw), &hr); err != nil {
		s.log.Warn("hot cache entry is corrupted", "error", err, "fingerprint", fingerprint)
		return nil, false
	}
	record := &domain.CachedChartRecord{
		Fingerprint: fingerprint,
		Chart:       []byte(hr.Chart),
		GeneratedAt: hr.GeneratedAt,
	}
	if err := record.ChartID.UnmarshalText([]byte(hr.ChartID)); err != nil {
		return nil, false
	}
	return record, true
}

func (s *Service) putHot(ctx context.Context, record *domain.CachedChartRecord) {
	if s.hot == nil {
		return
	}
	data, err := json.Marshal(hotRecord{
		ChartID:     record.ChartID.String(),
		Chart:       record.Chart,
		GeneratedAt: record.GeneratedAt,
	})
	if err != nil {
		return
	}
	if err := s.hot.Set(ctx, hotKeyPrefix+record.Fingerprint, string(data), s.hotTTL); err != nil {
		s.log.Warn("hot cache write failed", "error", err, "fingerprint", record.Fingerprint)
	}
}

func (s *Service) dropHot(ctx context.Context, fingerprints []string) {
	if s.hot == nil {
		return
	}
	for _, fp := range fingerprints {
		unlock := s.keys.lock(fp)
		if err := s.hot.Delete(ctx, hotKeyPrefix+fp); err != nil {
			s.log.Warn("hot cache delete failed", "error", err, "fingerprint", fp)
		}
		unlock()
	}
}
