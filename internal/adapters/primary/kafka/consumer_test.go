package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/admin/astro-natal/internal/domain"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

type scriptedHandler map[string]error

func (h scriptedHandler) HandleMessage(_ context.Context, key string, _ []byte) error {
	return h[key]
}

func newClaim(keys ...string) *fakeClaim {
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, len(keys))}
	for i, k := range keys {
		claim.messages <- &sarama.ConsumerMessage{Key: []byte(k), Offset: int64(i + 1)}
	}
	close(claim.messages)
	return claim
}

func newGroupHandler() *consumerGroupHandler {
	return &consumerGroupHandler{
		handler: scriptedHandler{
			"bad":   domain.WrapBusinessError(errors.New("invalid birth input")),
			"flaky": errors.New("upstream down"),
		},
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		topic: "requests",
	}
}

func TestConsumeClaim_MarksOkAndBusinessErrors(t *testing.T) {
	handler := newGroupHandler()
	session := &fakeSession{ctx: context.Background()}

	if err := handler.ConsumeClaim(session, newClaim("ok", "bad", "ok")); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(session.marked) != 3 {
		t.Fatalf("expected offsets 1..3 marked, got %v", session.marked)
	}
	if handler.failed.Load() {
		t.Fatalf("business errors must not flag a failure")
	}
}

func TestConsumeClaim_TechnicalErrorStopsBeforeLaterMessages(t *testing.T) {
	handler := newGroupHandler()
	session := &fakeSession{ctx: context.Background()}

	err := handler.ConsumeClaim(session, newClaim("ok", "flaky", "ok"))
	if err == nil {
		t.Fatalf("expected technical error to end the claim")
	}
	if len(session.marked) != 1 || session.marked[0] != 1 {
		t.Fatalf("only offset 1 may be marked, got %v", session.marked)
	}
	if !handler.failed.Load() {
		t.Fatalf("failure flag not set")
	}
}

func TestConsumeClaim_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler := &consumerGroupHandler{handler: scriptedHandler{}, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage)}
	if err := handler.ConsumeClaim(&fakeSession{ctx: ctx}, claim); err != nil {
		t.Fatalf("consume: %v", err)
	}
}
