// Package repository implements store.Store on PostgreSQL.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hray3182/tincan/internal/database"
	"github.com/hray3182/tincan/internal/store"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Store groups the per-table repositories.
type Store struct {
	*RecurringRepository
	*BudgetRepository
	*TransactionRepository
	*GoalRepository
	*AlertRepository
	*PreferenceRepository
}

var _ store.Store = (*Store)(nil)

func NewStore(db *database.DB) *Store {
	txs := NewTransactionRepository(db)
	return &Store{
		RecurringRepository:   NewRecurringRepository(db, txs),
		BudgetRepository:      NewBudgetRepository(db),
		TransactionRepository: txs,
		GoalRepository:        NewGoalRepository(db),
		AlertRepository:       NewAlertRepository(db),
		PreferenceRepository:  NewPreferenceRepository(db),
	}
}
