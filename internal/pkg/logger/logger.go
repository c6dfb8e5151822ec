package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	EncodingJSON    = "json"
	EncodingConsole = "console"
)

type Config struct {
	Encoding string `envconfig:"ENCODING" default:"console"`
	Level    string `envconfig:"LEVEL" default:"info"`
	// AddSource file:line вызова в каждой записи
	AddSource bool `envconfig:"ADD_SOURCE" default:"true"`
}

// New логгер приложения с атрибутом app; json пишет в stdout, console в stderr
func New(app string, cfg *Config) (*slog.Logger, error) {
	if cfg == nil {
		cfg = &Config{AddSource: true}
	}
	return newLogger(app, cfg, os.Stdout, os.Stderr)
}

func newLogger(app string, cfg *Config, stdout, stderr io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: shortSource,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Encoding) {
	case EncodingJSON:
		handler = slog.NewJSONHandler(stdout, opts)
	case "", EncodingConsole:
		handler = slog.NewTextHandler(stderr, opts)
	default:
		return nil, fmt.Errorf("invalid logger config: encoding %q is not supported", cfg.Encoding)
	}

	return slog.New(handler).With("app", app), nil
}

// ParseLevel пустая строка - info
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid logger config: level %q is not supported", level)
	}
}

// shortSource оставляет от пути к файлу только пакет и имя файла
func shortSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey {
		return a
	}
	src, ok := a.Value.Any().(*slog.Source)
	if !ok || src == nil {
		return a
	}
	short := filepath.Join(filepath.Base(filepath.Dir(src.File)), filepath.Base(src.File))
	return slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", short, src.Line))
}
