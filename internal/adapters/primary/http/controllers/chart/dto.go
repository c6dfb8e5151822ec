package chartController

import (
	"time"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/usecases/chart"
)

// GenerateRequest тело POST /charts
type GenerateRequest struct {
	BirthInput   domain.BirthInput `json:"birth_input"`
	ForceRefresh bool              `json:"force_refresh"`
}

// CachedRequest тело POST /charts/cached и POST /charts/visualization
type CachedRequest struct {
	BirthInput domain.BirthInput `json:"birth_input"`
}

type ChartResponse struct {
	Chart       *domain.NatalChart `json:"chart"`
	GeneratedAt time.Time          `json:"generated_at"`
	FromCache   bool               `json:"from_cache"`
	Stale       bool               `json:"stale"`
}

// ListResponse ответ GET /charts
type ListResponse struct {
	Items []chart.CachedEntry `json:"items"`
	Total int64               `json:"total"`
}

type LimitsResponse struct {
	CanGenerate       bool     `json:"can_generate"`
	RetryAfterSeconds *float64 `json:"retry_after_seconds"`
}

type VisualizationResponse struct {
	URL string `json:"url"`
}

type ErrorResponse struct {
	Error             string   `json:"error"`
	Code              string   `json:"code"`
	RetryAfterSeconds *float64 `json:"retry_after_seconds,omitempty"`
}
