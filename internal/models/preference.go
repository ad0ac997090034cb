package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationPreference controls the daily alert digest for an owner.
type NotificationPreference struct {
	OwnerID        uuid.UUID  `json:"user_id"`
	TelegramChatID int64      `json:"telegram_chat_id"`
	DigestEnabled  bool       `json:"digest_enabled"`
	DigestTime     string     `json:"digest_time"` // HH:MM, owner local time
	Timezone       string     `json:"timezone"`
	LastDigestAt   *time.Time `json:"last_digest_at"`
}

func (p *NotificationPreference) location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ShouldSendDigest reports whether the digest is due: at most once per local
// calendar day, at or after DigestTime.
func (p *NotificationPreference) ShouldSendDigest(now time.Time) bool {
	if !p.DigestEnabled || p.TelegramChatID == 0 {
		return false
	}

	loc := p.location()
	localNow := now.In(loc)
	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc)

	if p.LastDigestAt != nil && !p.LastDigestAt.In(loc).Before(today) {
		return false
	}

	hour, min := parseTimeString(p.DigestTime)
	sendAt := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), hour, min, 0, 0, loc)
	return !localNow.Before(sendAt)
}

// parseTimeString parses "HH:MM"; malformed input means midnight.
func parseTimeString(timeStr string) (hour, min int) {
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return 0, 0
	}
	return t.Hour(), t.Minute()
}
