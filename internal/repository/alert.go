package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hray3182/tincan/internal/database"
	"github.com/hray3182/tincan/internal/models"
	"github.com/hray3182/tincan/internal/store"
)

type AlertRepository struct {
	db *database.DB
}

func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, user_id, type, title, message, priority, metadata, is_read, created_at`

// errClaimed rolls back an insert that lost to an existing alert.
var errClaimed = errors.New("alert already claimed")

func scanAlert(row pgx.Row) (*models.Alert, error) {
	a := &models.Alert{}
	err := row.Scan(&a.ID, &a.OwnerID, &a.Type, &a.Title, &a.Message, &a.Priority, &a.Metadata, &a.IsRead, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AlertRepository) FindRecentAlert(ctx context.Context, ownerID uuid.UUID, typ models.AlertType, sourceID uuid.UUID, since time.Time) (*models.Alert, error) {
	return scanAlert(r.db.Pool.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE user_id = $1 AND type = $2 AND source_id = $3 AND created_at > $4
		 ORDER BY created_at DESC LIMIT 1`,
		ownerID, typ, sourceID, since,
	))
}

func (r *AlertRepository) FindAlertByMilestone(ctx context.Context, goalID uuid.UUID, milestone int) (*models.Alert, error) {
	return scanAlert(r.db.Pool.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE type = $1 AND source_id = $2 AND (metadata ->> 'milestone')::INT = $3
		 LIMIT 1`,
		models.AlertGoalMilestone, goalID, milestone,
	))
}

// InsertAlertIfAbsent takes the dedup claim and inserts the alert in one
// transaction. An expired claim is taken over; a live one wins.
func (r *AlertRepository) InsertAlertIfAbsent(ctx context.Context, alert *models.Alert, key models.DedupKey) (bool, error) {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO alert_dedup (dedup_key, alert_id, expires_at) VALUES ($1, $2, $3)
			 ON CONFLICT (dedup_key) DO UPDATE SET alert_id = EXCLUDED.alert_id, expires_at = EXCLUDED.expires_at
			 WHERE alert_dedup.expires_at IS NOT NULL AND alert_dedup.expires_at <= $4`,
			key.Value, alert.ID, key.ExpiresAt(alert.CreatedAt), alert.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("claim %s: %w", key.Value, err)
		}
		if tag.RowsAffected() == 0 {
			return errClaimed
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO alerts (id, user_id, type, title, message, priority, source_id, metadata, is_read, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			alert.ID, alert.OwnerID, alert.Type, alert.Title, alert.Message, alert.Priority,
			alert.Metadata.SourceID(), alert.Metadata, alert.IsRead, alert.CreatedAt,
		)
		if isUniqueViolation(err) {
			return errClaimed
		}
		return err
	})
	if errors.Is(err, errClaimed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *AlertRepository) PurgeAlerts(ctx context.Context, readBefore, now time.Time) (store.PurgeResult, error) {
	var res store.PurgeResult
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM alerts WHERE is_read AND created_at < $1`, readBefore)
		if err != nil {
			return err
		}
		res.Alerts = tag.RowsAffected()

		tag, err = tx.Exec(ctx, `DELETE FROM alert_dedup WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
		if err != nil {
			return err
		}
		res.Claims = tag.RowsAffected()
		return nil
	})
	return res, err
}

func (r *AlertRepository) ListUnreadAlertsSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]models.Alert, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+alertColumns+` FROM alerts
		 WHERE user_id = $1 AND NOT is_read AND created_at > $2
		 ORDER BY created_at`,
		ownerID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}
