package alerter

import (
	"context"
	"fmt"

	"github.com/admin/astro-natal/internal/adapters/secondary/alerter"
	"github.com/admin/astro-natal/internal/ports/service"
)

// Service реализует IAlerterService для отправки алертов
type Service struct {
	client  *alerter.Client
	appName string
}

// New создаёт новый сервис для отправки алертов; appName попадает в заголовок сообщения
func New(client *alerter.Client, appName string) service.IAlerterService {
	return &Service{
		client:  client,
		appName: appName,
	}
}

// SendAlert отправляет алерт
func (s *Service) SendAlert(ctx context.Context, message string) error {
	if s.client == nil {
		return fmt.Errorf("alerter client is not initialized")
	}
	if s.appName != "" {
		message = fmt.Sprintf("[%s]\n%s", s.appName, message)
	}
	return s.client.SendAlert(ctx, message)
}
