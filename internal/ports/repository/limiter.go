package repository

import (
	"context"

	"github.com/admin/astro-natal/internal/domain"
)

// ILimiterStateRepo хранилище состояния ограничителя запросов.
// Load возвращает nil без ошибки, если состояние ещё не сохранялось.
type ILimiterStateRepo interface {
	Load(ctx context.Context, name string) (*domain.RateLimiterState, error)
	Save(ctx context.Context, name string, state *domain.RateLimiterState) error
}
