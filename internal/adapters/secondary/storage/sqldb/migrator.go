package sqldb

import (
	"context"
	"embed"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/admin/astro-natal/internal/ports/persistence"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations применяет миграции к базе данных.
// SQL миграций общий для SQLite и PostgreSQL: время хранится в unix-миллисекундах.
func RunMigrations(ctx context.Context, db *DB, logger *slog.Logger) error {
	logger.Info("starting database migrations")

	if err := createMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := getMigrations()
	if err != nil {
		return fmt.Errorf("failed to get migrations: %w", err)
	}

	currentVersion, err := getCurrentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	applied := 0
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			logger.Debug("migration already applied", "version", migration.Version, "name", migration.Name)
			continue
		}

		logger.Info("applying migration", "version", migration.Version, "name", migration.Name)

		if err := applyMigration(ctx, db, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}
		applied++

		logger.Info("migration applied successfully", "version", migration.Version, "name", migration.Name)
	}

	logger.Info("database migrations completed", "applied", applied, "total", len(migrations))
	return nil
}

type migration struct {
	Version int64
	Name    string
	Content string
}

// getMigrations читает все SQL файлы из директории migrations и сортирует их по версии
func getMigrations() ([]migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []migration

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, name, err := parseMigrationName(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("invalid migration name %s: %w", entry.Name(), err)
		}

		content, err := migrationsFS.ReadFile(filepath.ToSlash(filepath.Join("migrations", entry.Name())))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, migration{
			Version: version,
			Name:    name,
			Content: string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// parseMigrationName парсит имя файла миграции (формат: 0001_name.sql)
func parseMigrationName(filename string) (int64, string, error) {
	name := strings.TrimSuffix(filename, ".sql")

	parts := strings.SplitN(name, "_", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("invalid format: expected NNNN_name.sql")
	}

	version, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid version number: %w", err)
	}

	return version, parts[1], nil
}

// splitStatements делит файл миграции на отдельные выражения по ';'
func splitStatements(content string) []string {
	var out []string
	for _, stmt := range strings.Split(content, ";") {
		lines := make([]string, 0)
		for _, line := range strings.Split(stmt, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		if s := strings.TrimSpace(strings.Join(lines, "\n")); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// applyMigration применяет миграцию и записывает версию в одной транзакции
func applyMigration(ctx context.Context, db *DB, m migration) error {
	if err := markDirty(ctx, db, m.Version, true); err != nil {
		return fmt.Errorf("failed to mark dirty: %w", err)
	}

	err := db.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		for _, stmt := range splitStatements(m.Content) {
			if err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute migration: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := markDirty(ctx, db, m.Version, false); err != nil {
		return fmt.Errorf("failed to unmark dirty: %w", err)
	}
	return nil
}

// getCurrentVersion последняя чистая версия схемы
func getCurrentVersion(ctx context.Context, db *DB) (int64, error) {
	var version int64
	query := db.Db.Rebind("SELECT COALESCE(MAX(version), 0) FROM schema_migrations WHERE dirty = ?")
	err := db.Get(ctx, &version, query, false)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

// markDirty устанавливает флаг dirty для миграции
func markDirty(ctx context.Context, db *DB, version int64, dirty bool) error {
	query, args, err := db.Builder().
		Insert("schema_migrations").
		Columns("version", "dirty", "applied_at").
		Values(version, dirty, time.Now().UTC().UnixMilli()).
		Suffix("ON CONFLICT (version) DO UPDATE SET dirty = excluded.dirty, applied_at = excluded.applied_at").
		ToSql()
	if err != nil {
		return err
	}
	return db.Exec(ctx, query, args...)
}

// createMigrationsTable создает таблицу для отслеживания выполненных миграций
func createMigrationsTable(ctx context.Context, db *DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version BIGINT NOT NULL PRIMARY KEY,
			dirty BOOLEAN NOT NULL DEFAULT FALSE,
			applied_at BIGINT NOT NULL
		)
	`
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}
