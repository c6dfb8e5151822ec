package sqldb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/admin/astro-natal/internal/ports/persistence"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := &Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "nested", "test.db")}
	conn, err := cfg.NewConnection()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db := NewDB(conn, cfg)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunMigrations_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for i := 0; i < 2; i++ {
		if err := RunMigrations(ctx, db, discardLogger()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	version, err := getCurrentVersion(ctx, db)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	migrations, err := getMigrations()
	if err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if version != migrations[len(migrations)-1].Version {
		t.Fatalf("expected version %d, got %d", migrations[len(migrations)-1].Version, version)
	}

	for _, table := range []string{"chart_cache", "limiter_state"} {
		var n int
		if err := db.Get(ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
			t.Fatalf("table %s not created: %v", table, err)
		}
	}
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if err := RunMigrations(ctx, db, discardLogger()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		query, args, err := tx.Builder().
			Insert("chart_cache").
			Columns("fingerprint", "chart_id", "chart", "generated_at").
			Values("fp", "id", "{}", 1).
			ToSql()
		if err != nil {
			return err
		}
		if err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	if err := db.Get(ctx, &n, "SELECT COUNT(*) FROM chart_cache"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected rollback, found %d rows", n)
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("-- comment\nCREATE TABLE a (x INT);\n\nCREATE INDEX i ON a (x);\n")
	if len(got) != 2 || got[0] != "CREATE TABLE a (x INT)" || got[1] != "CREATE INDEX i ON a (x)" {
		t.Fatalf("unexpected statements: %q", got)
	}
}

func TestParseMigrationName(t *testing.T) {
	v, name, err := parseMigrationName("0002_limiter_state.sql")
	if err != nil || v != 2 || name != "limiter_state" {
		t.Fatalf("unexpected parse: %d %q %v", v, name, err)
	}
	if _, _, err := parseMigrationName("limiter.sql"); err == nil {
		t.Fatalf("expected error for name without version")
	}
}

func TestNewConnection_UnknownDriver(t *testing.T) {
	cfg := &Config{Driver: "oracle"}
	if _, err := cfg.NewConnection(); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestPgConnConfig_StatementTimeoutOnEveryConnection(t *testing.T) {
	cfg := &Config{
		Driver:                 DriverPostgres,
		Host:                   "db.local",
		Port:                   "5432",
		Username:               "natal",
		Password:               "secret",
		Database:               "charts",
		SSLMode:                "disable",
		StatementTimeoutMillis: 1500,
	}
	conn, err := cfg.pgConnConfig()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := conn.RuntimeParams["statement_timeout"]; got != "1500" {
		t.Fatalf("expected statement_timeout 1500, got %q", got)
	}

	cfg.StatementTimeoutMillis = 0
	conn, err = cfg.pgConnConfig()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := conn.RuntimeParams["statement_timeout"]; got != "60000" {
		t.Fatalf("expected default statement_timeout, got %q", got)
	}
}
