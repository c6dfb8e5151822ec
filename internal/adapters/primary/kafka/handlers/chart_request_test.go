package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/usecases/chart"
	"github.com/google/uuid"
)

type fakeGenerator struct {
	errs  []error
	calls int
	got   domain.BirthInput
	force bool
}

func (f *fakeGenerator) GenerateChart(_ context.Context, in domain.BirthInput, force bool) (*chart.Result, error) {
	f.calls++
	f.got, f.force = in, force
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &chart.Result{Chart: &domain.NatalChart{ID: uuid.New()}}, nil
}

func newHandler(gen *fakeGenerator) *ChartRequestHandler {
	return NewChartRequestHandler(gen, time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil))).(*ChartRequestHandler)
}

const request = `{"request_id":"r-1","force_refresh":true,"birth_input":{"name":"Ann","date":"1992-07-04","time":"10:15","location":"New York","timezone":"America/New_York"}}`

func TestHandleMessage(t *testing.T) {
	gen := &fakeGenerator{}
	if err := newHandler(gen).HandleMessage(context.Background(), "k", []byte(request)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if gen.calls != 1 || !gen.force || gen.got.Timezone != "America/New_York" || gen.got.Time.Minute != 15 {
		t.Fatalf("request not passed through: calls=%d force=%v input=%+v", gen.calls, gen.force, gen.got)
	}
}

func TestHandleMessage_RetriesQuotaAndOffline(t *testing.T) {
	gen := &fakeGenerator{errs: []error{
		&domain.QuotaExceededError{RetryAfter: time.Millisecond},
		domain.ErrOffline,
		nil,
	}}
	if err := newHandler(gen).HandleMessage(context.Background(), "k", []byte(request)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if gen.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", gen.calls)
	}
}

func TestHandleMessage_RejectedIsBusinessError(t *testing.T) {
	cases := []error{
		domain.ErrInvalidBirthInput,
		&domain.UnknownTimezoneError{Identifier: "Mars/Base"},
		&domain.DecodingError{Cause: errors.New("unknown sign")},
	}
	for _, cause := range cases {
		gen := &fakeGenerator{errs: []error{cause}}
		err := newHandler(gen).HandleMessage(context.Background(), "k", []byte(request))
		if !domain.IsBusinessError(err) {
			t.Fatalf("%v: expected business error, got %v", cause, err)
		}
	}

	err := newHandler(&fakeGenerator{}).HandleMessage(context.Background(), "k", []byte("{not json"))
	if !domain.IsBusinessError(err) {
		t.Fatalf("broken payload must be a business error, got %v", err)
	}
}

func TestHandleMessage_UpstreamIsTechnical(t *testing.T) {
	gen := &fakeGenerator{errs: []error{&domain.UpstreamError{Cause: errors.New("502")}}}
	err := newHandler(gen).HandleMessage(context.Background(), "k", []byte(request))
	if err == nil || domain.IsBusinessError(err) {
		t.Fatalf("expected technical error, got %v", err)
	}
}

func TestHandleMessage_CancelWhileWaiting(t *testing.T) {
	gen := &fakeGenerator{errs: []error{&domain.QuotaExceededError{RetryAfter: time.Hour}}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := newHandler(gen).HandleMessage(ctx, "k", []byte(request))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
