package repository

import (
	"context"
	"time"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/ports/persistence"
)

// IChartRepo интерфейс для работы с кэшем рассчитанных карт
type IChartRepo interface {
	Upsert(ctx context.Context, record *domain.CachedChartRecord) error
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.CachedChartRecord, error)
	List(ctx context.Context, limit uint64) ([]*domain.CachedChartRecord, error)
	Count(ctx context.Context) (int64, error)

	WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error

	UpsertTx(ctx context.Context, tx persistence.Transaction, record *domain.CachedChartRecord) error
	FingerprintsOlderThanTx(ctx context.Context, tx persistence.Transaction, cutoff time.Time) ([]string, error)
	DeleteOlderThanTx(ctx context.Context, tx persistence.Transaction, cutoff time.Time) (int64, error)
}
