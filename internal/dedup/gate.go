// Package dedup suppresses alerts whose condition was already reported.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hray3182/tincan/internal/models"
	"github.com/hray3182/tincan/internal/store"
)

// Window is the rolling suppression period for repeatable alert types.
const Window = 24 * time.Hour

type Decision string

const (
	Inserted Decision = "inserted"
	// Suppressed means an equivalent alert was found before inserting.
	Suppressed Decision = "suppressed"
	// Conflicted means another writer held the claim at insert time.
	Conflicted Decision = "conflicted"
)

// Gate commits alert intents at most once per dedup key.
type Gate struct {
	alerts store.AlertStore
	now    func() time.Time
}

func NewGate(alerts store.AlertStore, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{alerts: alerts, now: now}
}

// Key returns the uniqueness key for an alert. Milestones are unique for
// the lifetime of the goal; everything else for Window.
func Key(a *models.Alert) models.DedupKey {
	source := a.Metadata.SourceID()
	if a.Type == models.AlertGoalMilestone {
		return models.DedupKey{Value: fmt.Sprintf("%s:%s:%d", a.Type, source, a.Metadata.Milestone)}
	}
	return models.DedupKey{Value: fmt.Sprintf("%s:%s:%s", a.Type, a.OwnerID, source), Window: Window}
}

// Commit inserts alert unless an equivalent one exists. The lookup is a
// shortcut; the store claim decides.
func (g *Gate) Commit(ctx context.Context, alert *models.Alert) (Decision, error) {
	if alert.Metadata.SourceID() == uuid.Nil {
		return "", fmt.Errorf("alert %q has no source entity", alert.Type)
	}
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	alert.CreatedAt = g.now()
	key := Key(alert)

	existing, err := g.lookup(ctx, alert, key)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return Suppressed, nil
	}

	ok, err := g.alerts.InsertAlertIfAbsent(ctx, alert, key)
	if err != nil {
		return "", fmt.Errorf("insert alert: %w", err)
	}
	if !ok {
		return Conflicted, nil
	}
	return Inserted, nil
}

func (g *Gate) lookup(ctx context.Context, alert *models.Alert, key models.DedupKey) (*models.Alert, error) {
	if alert.Type == models.AlertGoalMilestone {
		a, err := g.alerts.FindAlertByMilestone(ctx, alert.Metadata.SourceID(), alert.Metadata.Milestone)
		if err != nil {
			return nil, fmt.Errorf("find milestone alert: %w", err)
		}
		return a, nil
	}
	a, err := g.alerts.FindRecentAlert(ctx, alert.OwnerID, alert.Type, alert.Metadata.SourceID(), alert.CreatedAt.Add(-key.Window))
	if err != nil {
		return nil, fmt.Errorf("find recent alert: %w", err)
	}
	return a, nil
}
