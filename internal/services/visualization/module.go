// Package visualization хранит изображения карт в объектном хранилище.
package visualization

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/ports/service"
	"github.com/admin/astro-natal/internal/ports/storage"
	"github.com/admin/astro-natal/internal/services/ephemeris"
)

const keyPrefix = "charts/"

var contentTypes = map[string]string{
	"svg": "image/svg+xml",
	"png": "image/png",
}

// Service изображения лежат под charts/{fingerprint}.{format}, повторная
// загрузка для того же отпечатка перезаписывает объект
type Service struct {
	client storage.IS3Client
	urlTTL time.Duration
	log    *slog.Logger
}

func New(client storage.IS3Client, urlTTL time.Duration, log *slog.Logger) service.IVisualizationStore {
	return &Service{
		client: client,
		urlTTL: urlTTL,
		log:    log,
	}
}

func (s *Service) Save(ctx context.Context, fingerprint string, image *ephemeris.Image) (*domain.Visualization, error) {
	if image == nil || len(image.Data) == 0 {
		return nil, fmt.Errorf("empty chart image")
	}
	format := strings.ToLower(image.Format)
	contentType, ok := contentTypes[format]
	if !ok {
		return nil, fmt.Errorf("unsupported image format %q", image.Format)
	}

	key := keyPrefix + fingerprint + "." + format
	if err := s.client.PutFile(ctx, key, image.Data, contentType); err != nil {
		return nil, fmt.Errorf("failed to upload chart image: %w", err)
	}

	s.log.Debug("chart image stored", "key", key, "size", len(image.Data))
	return &domain.Visualization{ID: key, Format: format}, nil
}

// URL временная ссылка на изображение
func (s *Service) URL(ctx context.Context, visualization *domain.Visualization) (string, error) {
	if visualization == nil || visualization.ID == "" {
		return "", domain.ErrVisualizationNotFound
	}
	return s.client.GetPresignedURL(ctx, visualization.ID, s.urlTTL)
}
