package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hray3182/tincan/internal/database"
	"github.com/hray3182/tincan/internal/models"
	"github.com/hray3182/tincan/internal/store"
)

type RecurringRepository struct {
	db  *database.DB
	txs *TransactionRepository
}

func NewRecurringRepository(db *database.DB, txs *TransactionRepository) *RecurringRepository {
	return &RecurringRepository{db: db, txs: txs}
}

const recurringColumns = `id, user_id, account_id, category_id, amount, description, frequency,
	next_date, last_processed, is_active`

func (r *RecurringRepository) ListActiveRecurringRulesDueBy(ctx context.Context, day time.Time) ([]models.RecurringRule, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions
		 WHERE is_active AND next_date <= $1
		 ORDER BY next_date, id`,
		day,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.RecurringRule
	for rows.Next() {
		var rule models.RecurringRule
		if err := rows.Scan(&rule.ID, &rule.OwnerID, &rule.AccountID, &rule.CategoryID, &rule.Amount,
			&rule.Description, &rule.Frequency, &rule.NextDueDate, &rule.LastProcessedDate, &rule.IsActive); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// InUnit runs fn inside one database transaction.
func (r *RecurringRepository) InUnit(ctx context.Context, fn func(ctx context.Context, u store.Unit) error) error {
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		return fn(ctx, &unit{tx: tx, txs: r.txs})
	})
}

type unit struct {
	tx  pgx.Tx
	txs *TransactionRepository
}

func (u *unit) AdvanceRecurringRule(ctx context.Context, adv models.RuleAdvance) (bool, error) {
	tag, err := u.tx.Exec(ctx,
		`UPDATE recurring_transactions SET next_date = $2, last_processed = $3
		 WHERE id = $1 AND is_active AND next_date = $4
		 AND (last_processed IS NULL OR last_processed < $3)`,
		adv.RuleID, adv.NextDue, adv.ProcessedOn, adv.ExpectedNextDue,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (u *unit) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	return u.txs.Create(ctx, u.tx, tx)
}
