package chartController

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/usecases/chart"
	"github.com/gin-gonic/gin"
)

type chartUsecase interface {
	GenerateChart(ctx context.Context, in domain.BirthInput, forceRefresh bool) (*chart.Result, error)
	GetCachedChart(ctx context.Context, in domain.BirthInput) (*chart.Result, error)
	RetryAfter(ctx context.Context) (*time.Duration, error)
	MonthlyUsage(ctx context.Context) (domain.MonthlyUsage, error)
	VisualizationURL(ctx context.Context, in domain.BirthInput) (string, error)
	ListCached(ctx context.Context, limit int) ([]chart.CachedEntry, int64, error)
}

type Controller struct {
	charts chartUsecase
	log    *slog.Logger
}

func New(charts chartUsecase, log *slog.Logger) *Controller {
	return &Controller{
		charts: charts,
		log:    log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.GET("/charts", c.list)
	router.POST("/charts", c.generate)
	router.POST("/charts/cached", c.cached)
	router.POST("/charts/visualization", c.visualization)
	router.GET("/limits", c.limits)
	router.GET("/usage", c.usage)
}

func (c *Controller) generate(ctx *gin.Context) {
	var req GenerateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.badRequest(ctx, err)
		return
	}

	res, err := c.charts.GenerateChart(ctx.Request.Context(), req.BirthInput, req.ForceRefresh)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toChartResponse(res))
}

func (c *Controller) cached(ctx *gin.Context) {
	var req CachedRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.badRequest(ctx, err)
		return
	}

	res, err := c.charts.GetCachedChart(ctx.Request.Context(), req.BirthInput)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toChartResponse(res))
}

func (c *Controller) visualization(ctx *gin.Context) {
	var req CachedRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.badRequest(ctx, err)
		return
	}

	url, err := c.charts.VisualizationURL(ctx.Request.Context(), req.BirthInput)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, VisualizationResponse{URL: url})
}

func (c *Controller) list(ctx *gin.Context) {
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.badRequest(ctx, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	items, total, err := c.charts.ListCached(ctx.Request.Context(), limit)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, ListResponse{Items: items, Total: total})
}

func (c *Controller) limits(ctx *gin.Context) {
	retryAfter, err := c.charts.RetryAfter(ctx.Request.Context())
	if err != nil {
		c.writeError(ctx, err)
		return
	}

	resp := LimitsResponse{CanGenerate: retryAfter == nil}
	if retryAfter != nil {
		seconds := retryAfter.Seconds()
		resp.RetryAfterSeconds = &seconds
	}
	ctx.JSON(http.StatusOK, resp)
}

func (c *Controller) usage(ctx *gin.Context) {
	usage, err := c.charts.MonthlyUsage(ctx.Request.Context())
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, usage)
}

func toChartResponse(res *chart.Result) ChartResponse {
	return ChartResponse{
		Chart:       res.Chart,
		GeneratedAt: res.GeneratedAt,
		FromCache:   res.FromCache,
		Stale:       res.Stale,
	}
}
