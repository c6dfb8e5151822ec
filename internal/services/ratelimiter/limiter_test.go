package ratelimiter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/admin/astro-natal/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	states  map[string]domain.RateLimiterState
	saves   int
	loadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: map[string]domain.RateLimiterState{}}
}

func (s *fakeStore) Load(_ context.Context, name string) (*domain.RateLimiterState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	st, ok := s.states[name]
	if !ok {
		return nil, nil
	}
	st.Timestamps = append([]time.Time(nil), st.Timestamps...)
	return &st, nil
}

func (s *fakeStore) Save(_ context.Context, name string, state *domain.RateLimiterState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := *state
	st.Timestamps = append([]time.Time(nil), state.Timestamps...)
	s.states[name] = st
	s.saves++
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLimiter(store *fakeStore, clock *fakeClock, cfg Config) *Limiter {
	return New(cfg, store, discardLogger(), WithClock(clock.Now))
}

func TestLimiter_BlocksAfterMaxRequestsAndRecovers(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)}
	l := newTestLimiter(newFakeStore(), clock, Config{MaxRequests: 5, Window: time.Minute})

	for i := 0; i < 5; i++ {
		dec, err := l.CanMakeRequest(ctx)
		if err != nil || !dec.Allowed {
			t.Fatalf("request %d should be allowed: %+v %v", i, dec, err)
		}
		if err := l.RecordRequest(ctx); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		clock.Advance(time.Second)
	}

	dec, err := l.CanMakeRequest(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if dec.Allowed || dec.RetryAfter <= 0 {
		t.Fatalf("expected block with positive retry after, got %+v", dec)
	}
	// первая метка в 12:00:00, сейчас 12:00:05
	if dec.RetryAfter != 55*time.Second {
		t.Fatalf("expected retry after 55s, got %s", dec.RetryAfter)
	}

	clock.Advance(time.Minute)
	dec, err = l.CanMakeRequest(ctx)
	if err != nil || !dec.Allowed || dec.RetryAfter != 0 {
		t.Fatalf("expected allowed after window, got %+v %v", dec, err)
	}
}

func TestLimiter_CheckDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	clock := &fakeClock{now: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)}
	l := newTestLimiter(store, clock, Config{MaxRequests: 1, Window: time.Minute})

	for i := 0; i < 10; i++ {
		if dec, _ := l.CanMakeRequest(ctx); !dec.Allowed {
			t.Fatalf("check %d consumed a slot", i)
		}
	}
	if store.saves != 0 {
		t.Fatalf("check must not persist state, saved %d times", store.saves)
	}
}

func TestLimiter_TryAcquireDeniedKeepsState(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	clock := &fakeClock{now: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)}
	l := newTestLimiter(store, clock, Config{MaxRequests: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		if dec, err := l.TryAcquire(ctx); err != nil || !dec.Allowed {
			t.Fatalf("acquire %d: %+v %v", i, dec, err)
		}
	}
	dec, err := l.TryAcquire(ctx)
	if err != nil || dec.Allowed {
		t.Fatalf("expected denial, got %+v %v", dec, err)
	}

	usage, err := l.MonthlyUsage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage.RequestCount != 2 {
		t.Fatalf("denied acquire consumed a slot: %d", usage.RequestCount)
	}
}

func TestLimiter_ConcurrentAcquireNeverExceedsMax(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)}
	l := newTestLimiter(newFakeStore(), clock, Config{MaxRequests: 5, Window: time.Minute})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, err := l.TryAcquire(ctx)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			if dec.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 5 {
		t.Fatalf("expected exactly 5 allowed, got %d", allowed)
	}
}

func TestLimiter_MonthlyCounterResets(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC)}
	l := newTestLimiter(newFakeStore(), clock, Config{MaxRequests: 100, Window: time.Minute, RequestsPerChart: 2, CreditsPerRequest: 3})

	for i := 0; i < 3; i++ {
		if err := l.RecordRequest(ctx); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	usage, err := l.MonthlyUsage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage.Month != "2024-01" || usage.RequestCount != 3 || usage.EstimatedCharts != 2 || usage.CreditsConsumed != 9 {
		t.Fatalf("unexpected january usage: %+v", usage)
	}

	clock.Advance(2 * time.Hour)
	usage, err = l.MonthlyUsage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage.Month != "2024-02" || usage.RequestCount != 0 || usage.EstimatedCharts != 0 {
		t.Fatalf("expected reset in february, got %+v", usage)
	}

	if err := l.RecordRequest(ctx); err != nil {
		t.Fatalf("record: %v", err)
	}
	usage, _ = l.MonthlyUsage(ctx)
	if usage.RequestCount != 1 || usage.EstimatedCharts != 1 {
		t.Fatalf("unexpected february usage: %+v", usage)
	}
}

func TestLimiter_StateSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	clock := &fakeClock{now: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)}
	cfg := Config{MaxRequests: 2, Window: time.Minute}

	first := newTestLimiter(store, clock, cfg)
	_ = first.RecordRequest(ctx)
	_ = first.RecordRequest(ctx)

	second := newTestLimiter(store, clock, cfg)
	dec, err := second.CanMakeRequest(ctx)
	if err != nil || dec.Allowed {
		t.Fatalf("restarted limiter forgot persisted state: %+v %v", dec, err)
	}
}

func TestLimiter_StoreError(t *testing.T) {
	store := newFakeStore()
	store.loadErr = errors.New("disk gone")
	clock := &fakeClock{now: time.Now()}
	l := newTestLimiter(store, clock, Config{})

	if _, err := l.CanMakeRequest(context.Background()); !errors.Is(err, store.loadErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}
