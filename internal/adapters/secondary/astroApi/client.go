package astroApi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/admin/astro-natal/internal/domain"
	"golang.org/x/time/rate"
)

const (
	GetPositions = "data/positions"
)

// truncateString обрезает строку до указанной длины
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Client - клиент для работы с астрологическим API
type Client struct {
	cfg        *Config
	HTTPClient *http.Client
	Log        *slog.Logger
	pacer      *rate.Limiter
}

// NewClient создаёт новый клиент для работы с астро-API
func NewClient(cfg *Config, log *slog.Logger) *Client {
	transport := &http.Transport{}

	if cfg.ShouldSkipSSL() {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		cfg: cfg,
		HTTPClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		Log:   log,
		pacer: rate.NewLimiter(limit, burst),
	}
}

// buildURL собирает полный URL из BaseURL, ApiVersion и endpoint
func (c *Client) buildURL(endpoint string) string {
	baseURL := strings.TrimSuffix(c.cfg.BaseURL, "/")
	return baseURL + "/" + path.Join(c.cfg.ApiVersion, endpoint)
}

// setHeaders устанавливает стандартные заголовки для запросов к API
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.ApiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.ApiKey)
	}
}

// DialAddress host:port API для проверки сети
func (c *Client) DialAddress() (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid astro API base url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("astro API base url %q has no host", c.cfg.BaseURL)
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// GetPositions получает позиции тел, куспиды и углы карты.
// Ответ, который не удалось разобрать, возвращается как domain.DecodingError.
func (c *Client) GetPositions(ctx context.Context, req PositionsRequest) (*PositionsResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return nil, fmt.Errorf("astro API pacing: %w", err)
	}

	url := c.buildURL(GetPositions)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(httpReq)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	rawJSON := string(body)

	if resp.StatusCode != http.StatusOK {
		c.Log.Debug("astro API returned non-200 status for positions",
			"status_code", resp.StatusCode,
			"body_preview", truncateString(rawJSON, 200),
		)
		return nil, fmt.Errorf("astro API error [status=%d]: %s", resp.StatusCode, truncateString(rawJSON, 500))
	}

	var posResp PositionsResponse
	if err := json.Unmarshal(body, &posResp); err != nil {
		c.Log.Debug("failed to unmarshal astro API response",
			"error", err,
			"body_preview", truncateString(rawJSON, 200),
		)
		return nil, &domain.DecodingError{Cause: fmt.Errorf("astro API unmarshal failed: %w", err)}
	}
	posResp.RawJSON = rawJSON

	if posResp.Status != "" && posResp.Status != "success" {
		return nil, fmt.Errorf("astro API returned error: status=%s, code=%d, message=%s",
			posResp.Status, posResp.Code, posResp.Message)
	}
	if posResp.Data == nil {
		return nil, &domain.DecodingError{Cause: fmt.Errorf("astro API response has no data")}
	}

	return &posResp, nil
}
