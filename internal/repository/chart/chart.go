package chartRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/ports/persistence"
	ports "github.com/admin/astro-natal/internal/ports/repository"
	"github.com/google/uuid"
)

type chartColumns struct {
	TableName   string
	Fingerprint string
	ChartID     string
	Chart       string
	GeneratedAt string
}

// chartRow строка таблицы: время в unix-миллисекундах, одинаково для SQLite и PostgreSQL
type chartRow struct {
	Fingerprint string `db:"fingerprint"`
	ChartID     string `db:"chart_id"`
	Chart       string `db:"chart"`
	GeneratedAt int64  `db:"generated_at"`
}

func (r chartRow) toDomain() (*domain.CachedChartRecord, error) {
	id, err := uuid.Parse(r.ChartID)
	if err != nil {
		return nil, fmt.Errorf("invalid chart id %q: %w", r.ChartID, err)
	}
	return &domain.CachedChartRecord{
		Fingerprint: r.Fingerprint,
		ChartID:     id,
		Chart:       []byte(r.Chart),
		GeneratedAt: time.UnixMilli(r.GeneratedAt).UTC(),
	}, nil
}

type Repository struct {
	db      persistence.Transactor
	Log     *slog.Logger
	columns chartColumns
}

// New создаёт новый репозиторий кэша карт
func New(db persistence.Transactor, log *slog.Logger) ports.IChartRepo {
	cols := chartColumns{
		TableName:   "chart_cache",
		Fingerprint: "fingerprint",
		ChartID:     "chart_id",
		Chart:       "chart",
		GeneratedAt: "generated_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

func (r *Repository) allColumns() []string {
	return []string{
		r.columns.Fingerprint,
		r.columns.ChartID,
		r.columns.Chart,
		r.columns.GeneratedAt,
	}
}

// WithTransaction выполняет функцию в транзакции
func (r *Repository) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	return r.db.WithTransaction(ctx, fn)
}

// Upsert сохраняет запись; существующая запись с тем же отпечатком заменяется
func (r *Repository) Upsert(ctx context.Context, record *domain.CachedChartRecord) error {
	return r.upsert(ctx, r.db, record)
}

func (r *Repository) UpsertTx(ctx context.Context, tx persistence.Transaction, record *domain.CachedChartRecord) error {
	return r.upsert(ctx, tx, record)
}

func (r *Repository) upsert(ctx context.Context, db persistence.Persistence, record *domain.CachedChartRecord) error {
	query, args, err := db.Builder().
		Insert(r.columns.TableName).
		Columns(r.allColumns()...).
		Values(
			record.Fingerprint,
			record.ChartID.String(),
			string(record.Chart),
			record.GeneratedAt.UTC().UnixMilli(),
		).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s, %s = excluded.%s, %s = excluded.%s",
			r.columns.Fingerprint,
			r.columns.ChartID, r.columns.ChartID,
			r.columns.Chart, r.columns.Chart,
			r.columns.GeneratedAt, r.columns.GeneratedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert query: %w", err)
	}

	if err := db.Exec(ctx, query, args...); err != nil {
		r.Log.Error("failed to upsert cached chart",
			"error", err,
			"fingerprint", record.Fingerprint,
			"chart_id", record.ChartID)
		return fmt.Errorf("failed to upsert cached chart: %w", err)
	}
	r.Log.Debug("cached chart saved",
		"fingerprint", record.Fingerprint,
		"chart_id", record.ChartID)
	return nil
}

// GetByFingerprint запись по отпечатку входа; если записей несколько, берётся самая свежая
func (r *Repository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.CachedChartRecord, error) {
	query, args, err := r.db.Builder().
		Select(r.allColumns()...).
		From(r.columns.TableName).
		Where(sq.Eq{r.columns.Fingerprint: fingerprint}).
		OrderBy(r.columns.GeneratedAt + " DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var row chartRow
	if err := r.db.Get(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fingerprint %s: %w", fingerprint, domain.ErrChartNotFound)
		}
		r.Log.Error("failed to get cached chart",
			"error", err,
			"fingerprint", fingerprint)
		return nil, fmt.Errorf("failed to get cached chart: %w", err)
	}
	return row.toDomain()
}

// List последние сохранённые записи, новые первыми
func (r *Repository) List(ctx context.Context, limit uint64) ([]*domain.CachedChartRecord, error) {
	builder := r.db.Builder().
		Select(r.allColumns()...).
		From(r.columns.TableName).
		OrderBy(r.columns.GeneratedAt + " DESC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	var rows []chartRow
	if err := r.db.Select(ctx, &rows, query, args...); err != nil {
		r.Log.Error("failed to list cached charts", "error", err)
		return nil, fmt.Errorf("failed to list cached charts: %w", err)
	}

	out := make([]*domain.CachedChartRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Count число записей в кэше
func (r *Repository) Count(ctx context.Context) (int64, error) {
	query, args, err := r.db.Builder().Select("COUNT(*)").From(r.columns.TableName).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var n int64
	if err := r.db.Get(ctx, &n, query, args...); err != nil {
		r.Log.Error("failed to count cached charts", "error", err)
		return 0, fmt.Errorf("failed to count cached charts: %w", err)
	}
	return n, nil
}

// FingerprintsOlderThanTx отпечатки записей, сгенерированных строго раньше cutoff
func (r *Repository) FingerprintsOlderThanTx(ctx context.Context, tx persistence.Transaction, cutoff time.Time) ([]string, error) {
	query, args, err := tx.Builder().
		Select(r.columns.Fingerprint).
		From(r.columns.TableName).
		Where(sq.Lt{r.columns.GeneratedAt: cutoff.UTC().UnixMilli()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var fingerprints []string
	if err := tx.Select(ctx, &fingerprints, query, args...); err != nil {
		r.Log.Error("failed to select stale charts", "error", err, "cutoff", cutoff)
		return nil, fmt.Errorf("failed to select stale charts: %w", err)
	}
	return fingerprints, nil
}

// DeleteOlderThanTx удаляет записи, сгенерированные строго раньше cutoff
func (r *Repository) DeleteOlderThanTx(ctx context.Context, tx persistence.Transaction, cutoff time.Time) (int64, error) {
	query, args, err := tx.Builder().
		Delete(r.columns.TableName).
		Where(sq.Lt{r.columns.GeneratedAt: cutoff.UTC().UnixMilli()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete query: %w", err)
	}

	deleted, err := tx.ExecWithResult(ctx, query, args...)
	if err != nil {
		r.Log.Error("failed to delete stale charts",
			"error", err,
			"cutoff", cutoff)
		return 0, fmt.Errorf("failed to delete stale charts: %w", err)
	}
	r.Log.Debug("stale charts deleted", "deleted", deleted, "cutoff", cutoff)
	return deleted, nil
}
