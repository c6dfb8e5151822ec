package service

import (
	"context"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/services/ephemeris"
)

// IEphemerisProvider внешний источник сырых эфемерид
type IEphemerisProvider interface {
	Snapshot(ctx context.Context, req ephemeris.Request) (*ephemeris.Snapshot, error)
}

// IConnectivity проверка доступности сети
type IConnectivity interface {
	IsOnline(ctx context.Context) bool
}

// IChartEvents публикация событий о рассчитанных картах
type IChartEvents interface {
	ChartGenerated(ctx context.Context, chart *domain.NatalChart, fingerprint string) error
}

// IVisualizationStore хранилище изображений карт
type IVisualizationStore interface {
	Save(ctx context.Context, fingerprint string, image *ephemeris.Image) (*domain.Visualization, error)
	URL(ctx context.Context, visualization *domain.Visualization) (string, error)
}
