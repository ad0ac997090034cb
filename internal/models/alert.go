package models

import (
	"time"

	"github.com/google/uuid"
)

type AlertType string

const (
	AlertBudgetExceeded AlertType = "budget_exceeded"
	AlertBudgetWarning  AlertType = "budget_warning"
	AlertGoalMilestone  AlertType = "goal_milestone"
	AlertGoalDeadline   AlertType = "goal_deadline"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// AlertMetadata is stored as jsonb. Exactly one of BudgetID and GoalID is set.
type AlertMetadata struct {
	BudgetID      *uuid.UUID `json:"budget_id,omitempty"`
	BudgetName    string     `json:"budget_name,omitempty"`
	GoalID        *uuid.UUID `json:"goal_id,omitempty"`
	GoalName      string     `json:"goal_name,omitempty"`
	Milestone     int        `json:"milestone,omitempty"`
	DaysRemaining int        `json:"days_remaining,omitempty"`
}

// SourceID returns the id of the entity the alert is about.
func (m AlertMetadata) SourceID() uuid.UUID {
	switch {
	case m.BudgetID != nil:
		return *m.BudgetID
	case m.GoalID != nil:
		return *m.GoalID
	}
	return uuid.Nil
}

type Alert struct {
	ID        uuid.UUID     `json:"id"`
	OwnerID   uuid.UUID     `json:"user_id"`
	Type      AlertType     `json:"type"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Priority  Priority      `json:"priority"`
	Metadata  AlertMetadata `json:"metadata"`
	IsRead    bool          `json:"is_read"`
	CreatedAt time.Time     `json:"created_at"`
}

// DedupKey claims an alert condition. A zero Window claims it for the
// lifetime of the source entity.
type DedupKey struct {
	Value  string
	Window time.Duration
}

// ExpiresAt returns nil for lifetime claims.
func (k DedupKey) ExpiresAt(createdAt time.Time) *time.Time {
	if k.Window <= 0 {
		return nil
	}
	t := createdAt.Add(k.Window)
	return &t
}
