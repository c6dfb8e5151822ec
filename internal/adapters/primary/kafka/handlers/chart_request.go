package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/admin/astro-natal/internal/domain"
	kafkaPorts "github.com/admin/astro-natal/internal/ports/kafka"
	"github.com/admin/astro-natal/internal/usecases/chart"
)

const defaultOfflineDelay = 30 * time.Second

type chartGenerator interface {
	GenerateChart(ctx context.Context, in domain.BirthInput, forceRefresh bool) (*chart.Result, error)
}

// ChartRequestMessage заявка на расчёт карты
type ChartRequestMessage struct {
	RequestID    string            `json:"request_id"`
	BirthInput   domain.BirthInput `json:"birth_input"`
	ForceRefresh bool              `json:"force_refresh"`
}

// ChartRequestHandler прогревает кэш картами из очереди. При исчерпанном
// лимите или без сети ждёт и повторяет ту же заявку, пока не отменят ctx
type ChartRequestHandler struct {
	charts       chartGenerator
	offlineDelay time.Duration
	log          *slog.Logger
}

func NewChartRequestHandler(charts chartGenerator, offlineDelay time.Duration, log *slog.Logger) kafkaPorts.MessageHandler {
	if offlineDelay <= 0 {
		offlineDelay = defaultOfflineDelay
	}
	return &ChartRequestHandler{
		charts:       charts,
		offlineDelay: offlineDelay,
		log:          log,
	}
}

func (h *ChartRequestHandler) HandleMessage(ctx context.Context, key string, value []byte) error {
	var req ChartRequestMessage
	if err := json.Unmarshal(value, &req); err != nil {
		return domain.WrapBusinessError(fmt.Errorf("failed to unmarshal chart request: %w", err))
	}

	for {
		res, err := h.charts.GenerateChart(ctx, req.BirthInput, req.ForceRefresh)
		if err == nil {
			h.log.Debug("chart request processed",
				"request_id", req.RequestID,
				"key", key,
				"chart_id", res.Chart.ID,
				"from_cache", res.FromCache,
			)
			return nil
		}

		wait, retry := h.retryDelay(err)
		if !retry {
			if isRejected(err) {
				return domain.WrapBusinessError(err)
			}
			return fmt.Errorf("failed to process chart request %s: %w", req.RequestID, err)
		}

		h.log.Info("chart request postponed",
			"request_id", req.RequestID,
			"reason", err,
			"retry_after", wait,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (h *ChartRequestHandler) retryDelay(err error) (time.Duration, bool) {
	var quotaErr *domain.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return quotaErr.RetryAfter, true
	}
	if errors.Is(err, domain.ErrOffline) {
		return h.offlineDelay, true
	}
	return 0, false
}

// isRejected заявку повторять бессмысленно: данные или ответ сервиса не примет и потом
func isRejected(err error) bool {
	var (
		tzErr       *domain.UnknownTimezoneError
		decodingErr *domain.DecodingError
	)
	return errors.Is(err, domain.ErrInvalidBirthInput) ||
		errors.As(err, &tzErr) ||
		errors.As(err, &decodingErr)
}
