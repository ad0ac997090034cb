package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/tincan/internal/models"
)

func TestTransientClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "cancelled", err: fmt.Errorf("query: %w", context.Canceled), want: true},
		{name: "connection reset", err: &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}, want: true},
		{name: "connection failure", err: &pgconn.PgError{Code: "08006"}, want: true},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505", ConstraintName: "idx_transactions_recurring_date"}},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}},
		{name: "plain", err: errors.New("advance lost")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Transient("op", tt.err)
			assert.Equal(t, tt.want, IsTransient(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, Transient("op", nil))
}

func TestWithTimeoutKeepsUnitErrorsPermanent(t *testing.T) {
	m := NewMemory()
	rule := models.RecurringRule{ID: uuid.New(), NextDueDate: date(2024, 3, 15), IsActive: true}
	m.PutRule(rule)
	s := WithTimeout(m, time.Second)

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "idx_transactions_recurring_date"}
	m.FailRule(rule.ID, dup)
	err := s.InUnit(context.Background(), func(ctx context.Context, u Unit) error {
		_, err := u.AdvanceRecurringRule(ctx, models.RuleAdvance{RuleID: rule.ID, ExpectedNextDue: rule.NextDueDate, NextDue: date(2024, 4, 15), ProcessedOn: date(2024, 3, 15)})
		return err
	})
	require.ErrorIs(t, err, dup)
	assert.False(t, IsTransient(err))

	reset := &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}
	m.FailRule(rule.ID, reset)
	err = s.InUnit(context.Background(), func(ctx context.Context, u Unit) error {
		_, err := u.AdvanceRecurringRule(ctx, models.RuleAdvance{RuleID: rule.ID, ExpectedNextDue: rule.NextDueDate, NextDue: date(2024, 4, 15), ProcessedOn: date(2024, 3, 15)})
		return err
	})
	assert.True(t, IsTransient(err))
}
