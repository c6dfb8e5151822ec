package connectivity

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/admin/astro-natal/internal/ports/service"
)

const defaultTimeout = 3 * time.Second

type Config struct {
	// Address host:port для проверки; пусто - адрес астро-API
	Address string        `envconfig:"ADDRESS"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"3s"`
}

// Probe считает сеть доступной, если TCP-соединение до адреса устанавливается за Timeout
type Probe struct {
	address string
	timeout time.Duration
	dialer  *net.Dialer
	log     *slog.Logger
}

func NewProbe(address string, timeout time.Duration, log *slog.Logger) service.IConnectivity {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Probe{
		address: address,
		timeout: timeout,
		dialer:  &net.Dialer{},
		log:     log,
	}
}

func (p *Probe) IsOnline(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	if err != nil {
		p.log.Debug("connectivity probe failed", "address", p.address, "error", err)
		return false
	}
	_ = conn.Close()
	return true
}
