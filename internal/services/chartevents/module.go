// Package chartevents публикует событие о каждой свежей карте.
package chartevents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/ports/kafka"
	"github.com/admin/astro-natal/internal/ports/service"
)

const eventChartGenerated = "chart.generated"

type chartGenerated struct {
	Event       string    `json:"event"`
	ChartID     string    `json:"chart_id"`
	Fingerprint string    `json:"fingerprint"`
	ComputedAt  time.Time `json:"computed_at"`
	HouseSystem string    `json:"house_system"`
	HasHouses   bool      `json:"has_houses"`
}

type Service struct {
	producer kafka.IKafkaProducer
}

func New(producer kafka.IKafkaProducer) service.IChartEvents {
	return &Service{producer: producer}
}

// ChartGenerated ключ сообщения - отпечаток входа, события одной карты идут в одну партицию
func (s *Service) ChartGenerated(ctx context.Context, chart *domain.NatalChart, fingerprint string) error {
	payload, err := json.Marshal(chartGenerated{
		Event:       eventChartGenerated,
		ChartID:     chart.ID.String(),
		Fingerprint: fingerprint,
		ComputedAt:  chart.ComputedAt,
		HouseSystem: string(chart.HouseSystem),
		HasHouses:   len(chart.Houses) == 12,
	})
	if err != nil {
		return fmt.Errorf("failed to encode chart event: %w", err)
	}
	return s.producer.Send(ctx, fingerprint, payload)
}
