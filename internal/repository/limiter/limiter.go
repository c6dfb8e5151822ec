package limiterRepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/ports/persistence"
	ports "github.com/admin/astro-natal/internal/ports/repository"
)

type limiterColumns struct {
	TableName    string
	Name         string
	Timestamps   string
	MonthToken   string
	MonthlyCount string
	UpdatedAt    string
}

type limiterRow struct {
	Name         string `db:"name"`
	Timestamps   string `db:"timestamps"`
	MonthToken   string `db:"month_token"`
	MonthlyCount int    `db:"monthly_count"`
}

// Repository состояние ограничителя в SQL-таблице
type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns limiterColumns
}

// New создаёт SQL-хранилище состояния ограничителя
func New(db persistence.Persistence, log *slog.Logger) ports.ILimiterStateRepo {
	return &Repository{
		db:  db,
		Log: log,
		columns: limiterColumns{
			TableName:    "limiter_state",
			Name:         "name",
			Timestamps:   "timestamps",
			MonthToken:   "month_token",
			MonthlyCount: "monthly_count",
			UpdatedAt:    "updated_at",
		},
	}
}

// Load состояние по имени ограничителя; nil, если его ещё не сохраняли
func (r *Repository) Load(ctx context.Context, name string) (*domain.RateLimiterState, error) {
	query, args, err := r.db.Builder().
		Select(r.columns.Name, r.columns.Timestamps, r.columns.MonthToken, r.columns.MonthlyCount).
		From(r.columns.TableName).
		Where(sq.Eq{r.columns.Name: name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var row limiterRow
	if err := r.db.Get(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.Log.Error("failed to load limiter state", "error", err, "limiter", name)
		return nil, fmt.Errorf("failed to load limiter state: %w", err)
	}

	timestamps, err := decodeTimestamps([]byte(row.Timestamps))
	if err != nil {
		return nil, err
	}
	return &domain.RateLimiterState{
		Timestamps:   timestamps,
		MonthToken:   row.MonthToken,
		MonthlyCount: row.MonthlyCount,
	}, nil
}

// Save перезаписывает состояние целиком
func (r *Repository) Save(ctx context.Context, name string, state *domain.RateLimiterState) error {
	timestamps, err := encodeTimestamps(state.Timestamps)
	if err != nil {
		return err
	}

	c := r.columns
	query, args, err := r.db.Builder().
		Insert(c.TableName).
		Columns(c.Name, c.Timestamps, c.MonthToken, c.MonthlyCount, c.UpdatedAt).
		Values(name, string(timestamps), state.MonthToken, state.MonthlyCount, time.Now().UTC().UnixMilli()).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s, %s = excluded.%s, %s = excluded.%s, %s = excluded.%s",
			c.Name,
			c.Timestamps, c.Timestamps,
			c.MonthToken, c.MonthToken,
			c.MonthlyCount, c.MonthlyCount,
			c.UpdatedAt, c.UpdatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert query: %w", err)
	}

	if err := r.db.Exec(ctx, query, args...); err != nil {
		r.Log.Error("failed to save limiter state", "error", err, "limiter", name)
		return fmt.Errorf("failed to save limiter state: %w", err)
	}
	return nil
}

// метки хранятся как JSON-массив unix-миллисекунд
func encodeTimestamps(ts []time.Time) ([]byte, error) {
	millis := make([]int64, len(ts))
	for i, t := range ts {
		millis[i] = t.UTC().UnixMilli()
	}
	data, err := json.Marshal(millis)
	if err != nil {
		return nil, fmt.Errorf("failed to encode limiter timestamps: %w", err)
	}
	return data, nil
}

func decodeTimestamps(data []byte) ([]time.Time, error) {
	var millis []int64
	if len(data) > 0 {
		if err := json.Unmarshal(data, &millis); err != nil {
			return nil, fmt.Errorf("failed to decode limiter timestamps: %w", err)
		}
	}
	out := make([]time.Time, len(millis))
	for i, ms := range millis {
		out[i] = time.UnixMilli(ms).UTC()
	}
	return out, nil
}
