package limiterRepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"log/slog"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/ports/cache"
	ports "github.com/admin/astro-natal/internal/ports/repository"
)

const kvKeyPrefix = "limiter:"

// KVRepository состояние ограничителя в key-value кэше (Redis), без TTL
type KVRepository struct {
	kv  cache.Cache
	Log *slog.Logger
}

// NewKV создаёт хранилище состояния поверх cache.Cache
func NewKV(kv cache.Cache, log *slog.Logger) ports.ILimiterStateRepo {
	return &KVRepository{kv: kv, Log: log}
}

type kvState struct {
	Timestamps   json.RawMessage `json:"timestamps"`
	MonthToken   string          `json:"month_token"`
	MonthlyCount int             `json:"monthly_count"`
}

func (r *KVRepository) Load(ctx context.Context, name string) (*domain.RateLimiterState, error) {
	raw, err := r.kv.Get(ctx, kvKeyPrefix+name)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		r.Log.Error("failed to load limiter state", "error", err, "limiter", name)
		return nil, fmt.Errorf("failed to load limiter state: %w", err)
	}

	var st kvState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("failed to decode limiter state: %w", err)
	}
	timestamps, err := decodeTimestamps(st.Timestamps)
	if err != nil {
		return nil, err
	}
	return &domain.RateLimiterState{
		Timestamps:   timestamps,
		MonthToken:   st.MonthToken,
		MonthlyCount: st.MonthlyCount,
	}, nil
}

func (r *KVRepository) Save(ctx context.Context, name string, state *domain.RateLimiterState) error {
	timestamps, err := encodeTimestamps(state.Timestamps)
	if err != nil {
		return err
	}
	data, err := json.Marshal(kvState{
		Timestamps:   timestamps,
		MonthToken:   state.MonthToken,
		MonthlyCount: state.MonthlyCount,
	})
	if err != nil {
		return fmt.Errorf("failed to encode limiter state: %w", err)
	}

	if err := r.kv.Set(ctx, kvKeyPrefix+name, string(data), 0); err != nil {
		r.Log.Error("failed to save limiter state", "error", err, "limiter", name)
		return fmt.Errorf("failed to save limiter state: %w", err)
	}
	return nil
}
