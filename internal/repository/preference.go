package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hray3182/tincan/internal/database"
	"github.com/hray3182/tincan/internal/models"
)

type PreferenceRepository struct {
	db *database.DB
}

func NewPreferenceRepository(db *database.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) ListDigestRecipients(ctx context.Context) ([]models.NotificationPreference, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT user_id, telegram_chat_id, digest_enabled, digest_time, timezone, last_digest_at
		 FROM notification_preferences
		 WHERE digest_enabled AND telegram_chat_id IS NOT NULL
		 ORDER BY user_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prefs []models.NotificationPreference
	for rows.Next() {
		var p models.NotificationPreference
		if err := rows.Scan(&p.OwnerID, &p.TelegramChatID, &p.DigestEnabled, &p.DigestTime, &p.Timezone, &p.LastDigestAt); err != nil {
			return nil, err
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

func (r *PreferenceRepository) MarkDigestSent(ctx context.Context, ownerID uuid.UUID, at time.Time) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE notification_preferences SET last_digest_at = $2 WHERE user_id = $1`,
		ownerID, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no notification preference for %s", ownerID)
	}
	return nil
}
