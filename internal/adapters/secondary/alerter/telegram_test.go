package alerter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendAlert(t *testing.T) {
	var (
		gotPath string
		gotReq  sendMessageRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	thread := int64(42)
	c := NewClient(&Config{APIURL: srv.URL + "/", BotToken: "123:abc", ChatID: -100500, MessageThreadID: &thread}, discardLogger())

	if err := c.SendAlert(context.Background(), "cache is down"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/bot123:abc/sendMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotReq.ChatID != -100500 || gotReq.Text != "cache is down" || gotReq.MessageThreadID == nil || *gotReq.MessageThreadID != 42 {
		t.Fatalf("unexpected request %+v", gotReq)
	}
}

func TestSendAlert_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	c := NewClient(&Config{APIURL: srv.URL, BotToken: "t", ChatID: 1}, discardLogger())
	err := c.SendAlert(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestSendAlert_TruncatesLongMessage(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(&Config{APIURL: srv.URL, BotToken: "t", ChatID: 1}, discardLogger())
	if err := c.SendAlert(context.Background(), strings.Repeat("ж", maxMessageRunes+10)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if n := utf8.RuneCountInString(got.Text); n != maxMessageRunes {
		t.Fatalf("expected %d runes, got %d", maxMessageRunes, n)
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	if err := c.SendAlert(context.Background(), "x"); err == nil {
		t.Fatalf("expected error from nil client")
	}
	if NewClient(nil, discardLogger()) != nil {
		t.Fatalf("nil config must give nil client")
	}
}
