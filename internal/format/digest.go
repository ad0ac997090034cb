// Package format renders alert digests for Telegram.
package format

import (
	"fmt"
	"strings"

	"github.com/hray3182/tincan/internal/models"
)

var priorityIcon = map[models.Priority]string{
	models.PriorityUrgent: "🚨",
	models.PriorityHigh:   "🔴",
	models.PriorityMedium: "🟡",
	models.PriorityLow:    "🟢",
}

// Digest renders alerts as markdown, newest last. summary is optional.
func Digest(alerts []models.Alert, summary string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("**📬 %d new alert", len(alerts)))
	if len(alerts) != 1 {
		b.WriteString("s")
	}
	b.WriteString("**\n\n")

	if summary = strings.TrimSpace(summary); summary != "" {
		b.WriteString(summary)
		b.WriteString("\n\n")
	}

	for _, a := range alerts {
		icon := priorityIcon[a.Priority]
		if icon == "" {
			icon = "•"
		}
		b.WriteString(fmt.Sprintf("%s **%s**\n%s\n", icon, a.Title, a.Message))
		b.WriteString(fmt.Sprintf("`%s`\n\n", a.CreatedAt.UTC().Format("2006-01-02 15:04")))
	}
	return strings.TrimRight(b.String(), "\n")
}
