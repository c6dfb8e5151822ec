package sqldb

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	maxOpenConnections            = 25
	maxIdleConnections            = 5
	connMaxLifetime               = 5 * time.Minute
	connMaxIdleTime               = 1 * time.Minute
	defaultStatementTimeoutMillis = 60000
)

type Config struct {
	Driver string `envconfig:"DRIVER" default:"sqlite"`
	// Path файл базы SQLite
	Path string `envconfig:"PATH" default:"data/astro-natal.db"`

	Host                   string `envconfig:"HOST"`
	Port                   string `envconfig:"PORT"`
	Username               string `envconfig:"USERNAME"`
	Password               string `envconfig:"PASSWORD"`
	Database               string `envconfig:"DATABASE"`
	SSLMode                string `envconfig:"SSL_MODE" default:"disable"`
	StatementTimeoutMillis int    `envconfig:"STATEMENT_TIMEOUT" default:"60000"`
}

func (c *Config) toPgConnection() string {
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		c.Host,
		c.Port,
		c.Username,
		c.Database,
		c.Password,
		c.SSLMode,
	)
}

// placeholder формат плейсхолдеров для squirrel
func (c *Config) placeholder() sq.PlaceholderFormat {
	if c.Driver == DriverPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// NewConnection открывает базу выбранного драйвера
func (c *Config) NewConnection() (*sqlx.DB, error) {
	switch c.Driver {
	case "", DriverSQLite:
		return c.newSQLite()
	case DriverPostgres:
		return c.newPostgres()
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", c.Driver)
	}
}

func (c *Config) newSQLite() (*sqlx.DB, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("open sqlite: empty db path")
	}

	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return nil, fmt.Errorf("open sqlite: create db dir: %w", err)
	}

	dsn := "file:" + c.Path + "?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite пишет из одного соединения
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite: ping: %w", err)
	}
	return db, nil
}

// pgConnConfig параметры pgx; statement_timeout уходит в startup-параметры,
// поэтому действует на каждом соединении пула
func (c *Config) pgConnConfig() (*pgx.ConnConfig, error) {
	connectionConfig, err := pgx.ParseConfig(c.toPgConnection())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	timeout := c.StatementTimeoutMillis
	if timeout <= 0 {
		timeout = defaultStatementTimeoutMillis
	}
	if connectionConfig.RuntimeParams == nil {
		connectionConfig.RuntimeParams = make(map[string]string)
	}
	connectionConfig.RuntimeParams["statement_timeout"] = strconv.Itoa(timeout)
	return connectionConfig, nil
}

func (c *Config) newPostgres() (*sqlx.DB, error) {
	connectionConfig, err := c.pgConnConfig()
	if err != nil {
		return nil, err
	}

	connectionString := stdlib.RegisterConnConfig(connectionConfig)
	db, err := sqlx.Connect("pgx", connectionString)
	if err != nil {
		return nil, fmt.Errorf("connect db error: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConnections)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetMaxIdleConns(maxIdleConnections)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
