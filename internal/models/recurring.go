package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// RecurringRule is a template for transactions generated on a schedule.
// NextDueDate and LastProcessedDate are calendar dates (UTC midnight).
type RecurringRule struct {
	ID                uuid.UUID       `json:"id"`
	OwnerID           uuid.UUID       `json:"user_id"`
	AccountID         uuid.UUID       `json:"account_id"`
	CategoryID        *uuid.UUID      `json:"category_id"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	Frequency         Frequency       `json:"frequency"`
	NextDueDate       time.Time       `json:"next_date"`
	LastProcessedDate *time.Time      `json:"last_processed"`
	IsActive          bool            `json:"is_active"`
}

// IsDue reports whether the rule should be materialized on day.
func (r *RecurringRule) IsDue(day time.Time) bool {
	return r.IsActive && !r.NextDueDate.After(day)
}

// ProcessedOn reports whether the rule was already materialized on day.
func (r *RecurringRule) ProcessedOn(day time.Time) bool {
	return r.LastProcessedDate != nil && !r.LastProcessedDate.Before(day)
}

// RuleAdvance moves a rule's due pointer. It only applies while the stored
// next due date still equals ExpectedNextDue and the rule has not been
// processed on ProcessedOn.
type RuleAdvance struct {
	RuleID          uuid.UUID
	ExpectedNextDue time.Time
	NextDue         time.Time
	ProcessedOn     time.Time
}
