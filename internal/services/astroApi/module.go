package astroApi

import (
	"context"
	"fmt"

	astroApiAdapter "github.com/admin/astro-natal/internal/adapters/secondary/astroApi"
	"github.com/admin/astro-natal/internal/ports/service"
	"github.com/admin/astro-natal/internal/services/ephemeris"
)

const (
	zodiacType = "Tropic"
	precision  = 6
)

type positionsClient interface {
	GetPositions(ctx context.Context, req astroApiAdapter.PositionsRequest) (*astroApiAdapter.PositionsResponse, error)
}

// Service поставщик эфемерид поверх астро-API
type Service struct {
	client     positionsClient
	includeSVG bool
}

// New создаёт поставщика эфемерид
func New(client positionsClient, includeSVG bool) service.IEphemerisProvider {
	return &Service{
		client:     client,
		includeSVG: includeSVG,
	}
}

// Snapshot запрашивает позиции на момент req.Instant (UTC) и переводит ответ в снимок
func (s *Service) Snapshot(ctx context.Context, req ephemeris.Request) (*ephemeris.Snapshot, error) {
	instant := req.Instant.UTC()

	birthData := astroApiAdapter.BirthData{
		Year:     instant.Year(),
		Month:    int(instant.Month()),
		Day:      instant.Day(),
		Hour:     instant.Hour(),
		Minute:   instant.Minute(),
		Second:   instant.Second(),
		Timezone: "UTC",
		City:     req.Location,
	}
	if req.Coordinates != nil {
		lat, lon := req.Coordinates.Latitude, req.Coordinates.Longitude
		birthData.Latitude = &lat
		birthData.Longitude = &lon
	}

	name := req.Name
	if name == "" {
		name = "Subject"
	}

	points := make([]string, 0, len(req.Bodies))
	for _, b := range req.Bodies {
		points = append(points, b.String())
	}

	apiReq := astroApiAdapter.PositionsRequest{
		Subject: astroApiAdapter.Person{
			Name:      name,
			BirthData: birthData,
		},
		Options: astroApiAdapter.PositionsOptions{
			HouseSystem:  req.HouseSystem.Code(),
			Language:     req.Language,
			ZodiacType:   zodiacType,
			ActivePoints: points,
			Precision:    precision,
			IncludeSVG:   s.includeSVG,
		},
	}

	resp, err := s.client.GetPositions(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	return toSnapshot(instant, resp.Data)
}
