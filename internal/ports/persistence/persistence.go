package persistence

import (
	"context"

	sq "github.com/Masterminds/squirrel"
)

// Persistence общий набор операций для БД и транзакции
type Persistence interface {
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Exec(ctx context.Context, query string, args ...interface{}) error
	ExecWithResult(ctx context.Context, query string, args ...interface{}) (int64, error)
	// Builder построитель запросов с плейсхолдерами текущего диалекта
	Builder() sq.StatementBuilderType
}

// Transaction открытая транзакция
type Transaction interface {
	Persistence
	Commit() error
	Rollback() error
}

// Transactor БД, которая умеет открывать транзакции
type Transactor interface {
	Persistence
	BeginTx(ctx context.Context) (Transaction, error)
	WithTransaction(ctx context.Context, fn func(context.Context, Transaction) error) error
}
