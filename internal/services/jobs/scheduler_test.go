package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type flakyJob struct {
	mu       sync.Mutex
	failures int
	runs     int
}

func (j *flakyJob) Name() string                    { return "flaky" }
func (j *flakyJob) NextRun(now time.Time) time.Time { return now.Add(time.Millisecond) }

func (j *flakyJob) Run(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	if j.runs <= j.failures {
		return fmt.Errorf("boom %d", j.runs)
	}
	return nil
}

type fakeAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (a *fakeAlerter) SendAlert(_ context.Context, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
	return nil
}

func newTestScheduler(alerter *fakeAlerter) *Scheduler {
	s := NewScheduler(discardLogger(), alerter)
	s.retries = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	return s
}

func TestExecuteJobWithRetry_RecoversOnRetry(t *testing.T) {
	s := newTestScheduler(nil)
	job := &flakyJob{failures: 2}

	attempts, err := s.executeJobWithRetry(context.Background(), job)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != nil || job.runs != 3 {
		t.Fatalf("expected 3 runs, got %d", job.runs)
	}
}

func TestExecuteJobWithRetry_AllAttemptsFail(t *testing.T) {
	alerter := &fakeAlerter{}
	s := newTestScheduler(alerter)
	job := &flakyJob{failures: 100}

	attempts, err := s.executeJobWithRetry(context.Background(), job)
	if err == nil {
		t.Fatalf("expected final error")
	}
	if len(attempts) != 4 || job.runs != 4 {
		t.Fatalf("expected 4 attempts, got %d (%d runs)", len(attempts), job.runs)
	}

	s.sendAlert(context.Background(), job.Name(), attempts)
	if len(alerter.messages) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerter.messages))
	}
	for i := 1; i <= 4; i++ {
		if !strings.Contains(alerter.messages[0], fmt.Sprintf("Попытка %d: boom %d", i, i)) {
			t.Fatalf("alert is missing attempt %d:\n%s", i, alerter.messages[0])
		}
	}
}

func TestExecuteJobWithRetry_StopsOnCancel(t *testing.T) {
	s := NewScheduler(discardLogger(), nil)
	job := &flakyJob{failures: 100}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.executeJobWithRetry(ctx, job)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected a single run before cancellation, got %d", job.runs)
	}
}

func TestStart_RunsJobUntilCancelled(t *testing.T) {
	s := newTestScheduler(nil)
	job := &flakyJob{}
	s.Register(job)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job.mu.Lock()
		runs := job.runs
		job.mu.Unlock()
		if runs >= 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job was not run repeatedly")
}

type fakeEvictor struct {
	days int
	err  error
}

func (f *fakeEvictor) EvictOlderThan(_ context.Context, days int, _ time.Time) (int64, error) {
	f.days = days
	return 3, f.err
}

func TestCacheEvictor(t *testing.T) {
	ev := &fakeEvictor{}
	job := NewCacheEvictor(ev, 90, discardLogger())

	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC), time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)},
		{time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC), time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC)},
		{time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC)},
		// 05:30 в Москве это 02:30 UTC
		{time.Date(2024, 5, 1, 5, 30, 0, 0, time.FixedZone("MSK", 3*3600)), time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		if got := job.NextRun(c.now); !got.Equal(c.want) {
			t.Fatalf("NextRun(%s) = %s, want %s", c.now, got, c.want)
		}
	}

	if err := job.Run(context.Background()); err != nil || ev.days != 90 {
		t.Fatalf("unexpected run result: %v, days=%d", err, ev.days)
	}
	ev.err = errors.New("locked")
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected eviction error to propagate")
	}
}
