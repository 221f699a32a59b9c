package bot

import (
	"fmt"
	"strings"

	"github.com/GregPesc/bot-telegram/internal/templates"
	"github.com/GregPesc/bot-telegram/pkg/models"
)

// formatList renders the full reminder list, numbered in insertion order.
// Delivered reminders keep their slot so numbering stays stable.
func formatList(c *templates.Catalog, reminders []models.Reminder) string {
	var b strings.Builder
	b.WriteString(c.ListHeader)
	b.WriteString("\n")

	if len(reminders) == 0 {
		b.WriteString(c.ListEmpty)
		return b.String()
	}

	for i, r := range reminders {
		mark := ""
		if r.Sent {
			mark = " ✔"
		}
		fmt.Fprintf(&b, "\n*%d.* %s%s\n🕒 %s\n", i+1, r.Text, mark, r.TriggerAt.Format(templates.DisplayLayout))
	}
	return b.String()
}

// formatDeletePrompt renders the numbered snapshot the deletion session
// was opened with. The numbers shown here are the only valid replies.
func formatDeletePrompt(c *templates.Catalog, active []models.Reminder) string {
	var b strings.Builder
	b.WriteString(c.DeletePrompt)
	b.WriteString("\n")
	for i, r := range active {
		fmt.Fprintf(&b, "\n*%d.* %s\n🕒 %s\n", i+1, r.Text, r.TriggerAt.Format(templates.DisplayLayout))
	}
	return b.String()
}

// formatStats renders the per-user and global counters.
func formatStats(c *templates.Catalog, u models.User, stats models.Stats) string {
	active := len(u.ActiveReminders())
	return fmt.Sprintf(c.StatsFormat, u.MessageCount, len(u.Reminders), active, stats.TotalMessages)
}
