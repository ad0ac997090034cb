package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hray3182/tincan/internal/database"
	"github.com/hray3182/tincan/internal/models"
)

type TransactionRepository struct {
	db *database.DB
}

func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts tx through q, which may be a unit-of-work transaction.
func (r *TransactionRepository) Create(ctx context.Context, q querier, tx *models.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	return q.QueryRow(ctx,
		`INSERT INTO transactions (id, user_id, account_id, category_id, amount, date, description, notes,
		 recurring_id, auto_generated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at`,
		tx.ID, tx.OwnerID, tx.AccountID, tx.CategoryID, tx.Amount, tx.Date, tx.Description, tx.Notes,
		tx.RecurringRuleID, tx.AutoGenerated,
	).Scan(&tx.CreatedAt)
}

func (r *TransactionRepository) SumExpenseTransactions(ctx context.Context, ownerID uuid.UUID, categoryID *uuid.UUID, start, end time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(ABS(amount)), 0) FROM transactions
		 WHERE user_id = $1 AND amount < 0 AND date >= $2 AND date <= $3
		 AND ($4::uuid IS NULL OR category_id = $4)`,
		ownerID, start, end, categoryID,
	).Scan(&total)
	return total, err
}
