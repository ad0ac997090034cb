package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/hray3182/tincan/internal/format"
	"github.com/hray3182/tincan/internal/logging"
	"github.com/hray3182/tincan/internal/models"
)

const digestLookback = 24 * time.Hour

var errNoNotifier = errors.New("no notifier configured")

// SendNotificationDigests delivers the daily digest to every owner whose
// local digest time has passed.
func (r *Runner) SendNotificationDigests(ctx context.Context) error {
	if r.notifier == nil {
		return errNoNotifier
	}
	prefs, err := r.store.ListDigestRecipients(ctx)
	if err != nil {
		return fmt.Errorf("list digest recipients: %w", err)
	}

	now := r.now()
	sent := 0
	for i := range prefs {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := &prefs[i]
		if !p.ShouldSendDigest(now) {
			continue
		}
		ok, err := r.sendDigest(ctx, p, now)
		if err != nil {
			r.entityError(SendDigest, err, logx.Field("owner_id", p.OwnerID.String()))
			continue
		}
		if ok {
			sent++
		}
	}
	logx.Infow("notification digests sent", logx.Field("sent", sent))
	return nil
}

func (r *Runner) sendDigest(ctx context.Context, p *models.NotificationPreference, now time.Time) (bool, error) {
	since := now.Add(-digestLookback)
	if p.LastDigestAt != nil && p.LastDigestAt.After(since) {
		since = *p.LastDigestAt
	}
	alerts, err := r.store.ListUnreadAlertsSince(ctx, p.OwnerID, since)
	if err != nil {
		return false, fmt.Errorf("list unread alerts: %w", err)
	}
	if len(alerts) == 0 {
		return false, nil
	}

	text := format.Digest(alerts, r.summarize(ctx, alerts))
	if err := r.notifier.Send(ctx, p.TelegramChatID, text); err != nil {
		return false, err
	}
	if err := r.store.MarkDigestSent(ctx, p.OwnerID, now); err != nil {
		return true, fmt.Errorf("mark digest sent: %w", err)
	}
	return true, nil
}

// summarize returns "" when no summarizer is configured or it fails.
func (r *Runner) summarize(ctx context.Context, alerts []models.Alert) string {
	if r.summarizer == nil {
		return ""
	}
	s, err := r.summarizer.SummarizeAlerts(ctx, alerts)
	if err != nil {
		logging.Warnw("digest summary unavailable", logging.Err(err))
		return ""
	}
	return s.Summary
}

// CleanupAlerts deletes read alerts past retention and expired dedup claims.
func (r *Runner) CleanupAlerts(ctx context.Context) error {
	now := r.now()
	res, err := r.store.PurgeAlerts(ctx, now.Add(-r.retention), now)
	if err != nil {
		return fmt.Errorf("purge alerts: %w", err)
	}
	logx.Infow("alerts cleaned up", logx.Field("alerts", res.Alerts), logx.Field("claims", res.Claims))
	return nil
}
