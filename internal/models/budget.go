package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BudgetPeriod string

const (
	PeriodWeekly    BudgetPeriod = "weekly"
	PeriodMonthly   BudgetPeriod = "monthly"
	PeriodQuarterly BudgetPeriod = "quarterly"
	PeriodYearly    BudgetPeriod = "yearly"
	PeriodCustom    BudgetPeriod = "custom"
)

type Budget struct {
	ID         uuid.UUID       `json:"id"`
	OwnerID    uuid.UUID       `json:"user_id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Period     BudgetPeriod    `json:"period"`
	CategoryID *uuid.UUID      `json:"category_id"` // nil = all categories
	StartDate  *time.Time      `json:"start_date"`  // custom period only
	EndDate    *time.Time      `json:"end_date"`    // custom period only
}
