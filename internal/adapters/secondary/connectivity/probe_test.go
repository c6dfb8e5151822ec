package connectivity

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"
)

func TestProbe(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()

	if !NewProbe(addr, time.Second, log).IsOnline(context.Background()) {
		t.Fatalf("expected online while listener is up")
	}

	_ = ln.Close()
	if NewProbe(addr, time.Second, log).IsOnline(context.Background()) {
		t.Fatalf("expected offline after listener closed")
	}
}
