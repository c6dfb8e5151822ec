package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestSend(t *testing.T) {
	cfg := &Config{Topic: "charts"}
	mock := mocks.NewSyncProducer(t, saramaConfig(cfg))
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"chart_id":"1"}` {
			return errors.New("unexpected value " + string(val))
		}
		return nil
	})

	p := newProducer(mock, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := p.Send(context.Background(), "fp", []byte(`{"chart_id":"1"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSend_Failure(t *testing.T) {
	cfg := &Config{Topic: "charts"}
	mock := mocks.NewSyncProducer(t, saramaConfig(cfg))
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := newProducer(mock, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := p.Send(context.Background(), "fp", []byte(`{}`))
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected wrapped ErrOutOfBrokers, got %v", err)
	}
	_ = p.Close()
}

func TestSASLConfig(t *testing.T) {
	c := saramaConfig(&Config{SecurityProtocol: "SASL_SSL", SASLMechanism: "SCRAM-SHA-256", SASLUsername: "u"})
	if !c.Net.SASL.Enable || !c.Net.TLS.Enable || c.Net.SASL.Mechanism != sarama.SASLTypeSCRAMSHA256 {
		t.Fatalf("unexpected sasl config: %+v", c.Net.SASL)
	}

	plain := (&Config{Brokers: "a:9092, b:9092"}).GetBrokers()
	if len(plain) != 2 || plain[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", plain)
	}
}
