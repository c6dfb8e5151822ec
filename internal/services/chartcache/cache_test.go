package chartcache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/admin/astro-natal/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/astro-natal/internal/adapters/secondary/storage/sqldb"
	"github.com/admin/astro-natal/internal/domain"
	"github.com/admin/astro-natal/internal/ports/persistence"
	"github.com/admin/astro-natal/internal/ports/repository"
	chartRepo "github.com/admin/astro-natal/internal/repository/chart"
	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRepo(t *testing.T) repository.IChartRepo {
	t.Helper()
	cfg := &sqldb.Config{Driver: sqldb.DriverSQLite, Path: filepath.Join(t.TempDir(), "cache.db")}
	conn, err := cfg.NewConnection()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db := sqldb.NewDB(conn, cfg)
	t.Cleanup(func() { _ = db.Close() })
	if err := sqldb.RunMigrations(context.Background(), db, discardLogger()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return chartRepo.New(db, discardLogger())
}

func birth(name string) domain.BirthInput {
	return domain.BirthInput{
		Name:        name,
		Date:        domain.LocalDate{Year: 1988, Month: time.November, Day: 3},
		Time:        domain.LocalTime{Hour: 6, Minute: 40},
		Location:    "Kyiv",
		Timezone:    "Europe/Kiev",
		Coordinates: &domain.Coordinates{Latitude: 50.45, Longitude: 30.5234},
	}
}

func chartAt(computedAt time.Time) *domain.NatalChart {
	return &domain.NatalChart{
		ID:          uuid.New(),
		BirthDate:   domain.LocalDate{Year: 1988, Month: time.November, Day: 3},
		BirthTime:   domain.LocalTime{Hour: 6, Minute: 40},
		Location:    "Kyiv",
		HouseSystem: domain.Placidus,
		Bodies: []domain.BodyPosition{
			{Body: domain.Sun, Longitude: 221.123456789, Sign: domain.Scorpio, House: 12, Speed: 1.0012},
			{Body: domain.Moon, Longitude: 14.5, Sign: domain.Aries, House: 5, Speed: 12.3},
		},
		Houses:      []domain.House{},
		Aspects:     []domain.Aspect{{First: domain.Sun, Second: domain.Moon, Type: domain.Quincunx, Orb: 3.37, IsApplying: true}},
		HouseRulers: []domain.HouseRuler{},
		ComputedAt:  computedAt.UTC(),
	}
}

func TestSaveAndFind(t *testing.T) {
	ctx := context.Background()
	svc := New(newRepo(t), discardLogger())
	in := birth("Olena")
	chart := chartAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	if _, err := svc.Save(ctx, chart, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, record, err := svc.Find(ctx, in)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if record.Fingerprint != in.Fingerprint() || !record.GeneratedAt.Equal(chart.ComputedAt) {
		t.Fatalf("unexpected record: %+v", record)
	}

	want, _ := json.Marshal(chart)
	have, _ := json.Marshal(got)
	if string(want) != string(have) {
		t.Fatalf("chart changed after round trip:\nwant %s\nhave %s", want, have)
	}
}

func TestSave_OverwritesSameFingerprint(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	svc := New(repo, discardLogger())
	in := birth("Olena")

	first := chartAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	second := chartAt(time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC))
	_, _ = svc.Save(ctx, first, in)
	_, _ = svc.Save(ctx, second, in)

	n, err := repo.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one record, got %d (%v)", n, err)
	}
	got, _, err := svc.Find(ctx, in)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != second.ID {
		t.Fatalf("expected last writer to win")
	}
}

func TestFind_Missing(t *testing.T) {
	svc := New(newRepo(t), discardLogger(), WithHotCache(inmemory.NewCache(), time.Hour))
	_, _, err := svc.Find(context.Background(), birth("nobody"))
	if !errors.Is(err, domain.ErrChartNotFound) {
		t.Fatalf("expected ErrChartNotFound, got %v", err)
	}
}

func TestIsStale(t *testing.T) {
	ref := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	rec := &domain.CachedChartRecord{GeneratedAt: ref.Add(-30 * 24 * time.Hour)}

	if IsStale(rec, ref, 30*24*time.Hour) {
		t.Fatalf("age equal to max age is not stale")
	}
	if !IsStale(rec, ref, 29*24*time.Hour) {
		t.Fatalf("expected stale")
	}
}

func TestEvictOlderThan(t *testing.T) {
	ctx := context.Background()
	hot := inmemory.NewCache()
	svc := New(newRepo(t), discardLogger(), WithHotCache(hot, time.Hour))
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	inputs := map[int]domain.BirthInput{10: birth("ten"), 40: birth("forty"), 100: birth("hundred")}
	for age, in := range inputs {
		if _, err := svc.Save(ctx, chartAt(ref.AddDate(0, 0, -age)), in); err != nil {
			t.Fatalf("save %d: %v", age, err)
		}
	}

	deleted, err := svc.EvictOlderThan(ctx, 30, ref)
	if err != nil {
		t.Fatalf("evict: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	if _, _, err := svc.Find(ctx, inputs[10]); err != nil {
		t.Fatalf("10-day record should survive: %v", err)
	}
	for _, age := range []int{40, 100} {
		if _, _, err := svc.Find(ctx, inputs[age]); !errors.Is(err, domain.ErrChartNotFound) {
			t.Fatalf("%d-day record should be gone, got %v", age, err)
		}
	}

	deleted, err = svc.EvictOlderThan(ctx, 30, ref)
	if err != nil || deleted != 0 {
		t.Fatalf("second eviction should be a no-op, got %d (%v)", deleted, err)
	}
}

func TestRecent(t *testing.T) {
	ctx := context.Background()
	svc := New(newRepo(t), discardLogger())
	ref := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"a", "b", "c"} {
		if _, err := svc.Save(ctx, chartAt(ref.Add(time.Duration(i)*time.Hour)), birth(name)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	records, total, err := svc.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if total != 3 || len(records) != 2 {
		t.Fatalf("expected 2 of 3 records, got %d of %d", len(records), total)
	}
	if records[0].Fingerprint != birth("c").Fingerprint() {
		t.Fatalf("newest record must come first")
	}
}

type failingRepo struct {
	repository.IChartRepo
}

func (failingRepo) WithTransaction(context.Context, func(context.Context, persistence.Transaction) error) error {
	return errors.New("disk full")
}

func TestSave_PersistFailure(t *testing.T) {
	svc := New(failingRepo{}, discardLogger())
	_, err := svc.Save(context.Background(), chartAt(time.Now()), birth("x"))

	var persistErr *domain.CachePersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("expected CachePersistError, got %v", err)
	}
}

// gatedCache задерживает запись горячего слоя для выбранной карты
type gatedCache struct {
	*inmemory.Cache
	holdChart string
	entered   chan struct{}
	release   chan struct{}
}

func (c *gatedCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if strings.Contains(value, c.holdChart) {
		close(c.entered)
		<-c.release
	}
	return c.Cache.Set(ctx, key, value, ttl)
}

func TestSave_ConcurrentWritersKeepHotLayerInSync(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	in := birth("Olena")

	first := chartAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	second := chartAt(time.Date(2024, 3, 1, 10, 0, 1, 0, time.UTC))

	hot := &gatedCache{
		Cache:     inmemory.NewCache(),
		holdChart: first.ID.String(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	svc := New(repo, discardLogger(), WithHotCache(hot, time.Hour))

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Save(ctx, first, in)
		firstDone <- err
	}()
	<-hot.entered

	secondDone := make(chan error, 1)
	go func() {
		_, err := svc.Save(ctx, second, in)
		secondDone <- err
	}()

	// второму писателю даём шанс обогнать первого, если блокировки нет
	select {
	case err := <-secondDone:
		secondDone <- err
	case <-time.After(50 * time.Millisecond):
	}
	close(hot.release)

	if err := <-firstDone; err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := <-secondDone; err != nil {
		t.Fatalf("second save: %v", err)
	}

	stored, err := repo.GetByFingerprint(ctx, in.Fingerprint())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got, _, err := svc.Find(ctx, in)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != stored.ChartID {
		t.Fatalf("hot layer serves %s while sql holds %s", got.ID, stored.ChartID)
	}
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	var k keyedMutex
	unlockA := k.lock("a")
	unlockB := k.lock("b")
	unlockA()
	unlockB()
	if len(k.locks) != 0 {
		t.Fatalf("expected no lock entries left, got %d", len(k.locks))
	}
}
