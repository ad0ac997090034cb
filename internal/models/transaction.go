package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a ledger row. Negative amounts are expenses.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	OwnerID         uuid.UUID       `json:"user_id"`
	AccountID       uuid.UUID       `json:"account_id"`
	CategoryID      *uuid.UUID      `json:"category_id"`
	Amount          decimal.Decimal `json:"amount"`
	Date            time.Time       `json:"date"`
	Description     string          `json:"description"`
	Notes           string          `json:"notes"`
	RecurringRuleID *uuid.UUID      `json:"recurring_id"` // set on materialized occurrences
	AutoGenerated   bool            `json:"auto_generated"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (t *Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}
