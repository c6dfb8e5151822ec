package chartController

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	codeInvalidInput    = "invalid_input"
	codeUnknownTimezone = "unknown_timezone"
	codeOffline         = "offline"
	codeQuotaExceeded   = "quota_exceeded"
	codeUpstream        = "upstream_failure"
	codeDecoding        = "decoding_failure"
	codeNotFound        = "not_found"
	codeInternal        = "internal"
)

func (c *Controller) badRequest(ctx *gin.Context, err error) {
	c.log.Debug("invalid request body", "error", err, "path", ctx.FullPath())
	ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: codeInvalidInput})
}

// writeError переводит ошибку фасада в HTTP-статус. Ожидаемые состояния
// (нет сети, лимит) пишутся в лог на уровне Info, остальное - Warn/Error
func (c *Controller) writeError(ctx *gin.Context, err error) {
	var (
		tzErr       *domain.UnknownTimezoneError
		quotaErr    *domain.QuotaExceededError
		upstreamErr *domain.UpstreamError
		decodingErr *domain.DecodingError
	)

	switch {
	case errors.Is(err, domain.ErrInvalidBirthInput):
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: codeInvalidInput})
	case errors.As(err, &tzErr):
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: codeUnknownTimezone})
	case errors.Is(err, domain.ErrChartNotFound), errors.Is(err, domain.ErrVisualizationNotFound):
		ctx.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: codeNotFound})
	case errors.Is(err, domain.ErrOffline):
		c.log.Info("chart request failed: offline", "path", ctx.FullPath())
		ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: codeOffline})
	case errors.As(err, &quotaErr):
		seconds := quotaErr.RetryAfter.Seconds()
		ctx.Header("Retry-After", strconv.Itoa(int(math.Ceil(seconds))))
		c.log.Info("chart request failed: quota exceeded", "retry_after", quotaErr.RetryAfter)
		ctx.JSON(http.StatusTooManyRequests, ErrorResponse{Error: err.Error(), Code: codeQuotaExceeded, RetryAfterSeconds: &seconds})
	case errors.As(err, &decodingErr):
		c.log.Warn("chart request failed: decoding", "error", err)
		ctx.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: codeDecoding})
	case errors.As(err, &upstreamErr):
		c.log.Warn("chart request failed: upstream", "error", err)
		ctx.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: codeUpstream})
	default:
		c.log.Error("chart request failed", "error", err, "path", ctx.FullPath())
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: codeInternal})
	}
}
