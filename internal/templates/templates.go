// Package templates manages the YAML-overridable reply catalog.
package templates

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DisplayLayout is how trigger times are rendered back to the user.
const DisplayLayout = "15:04 02/01/2006"

// Catalog holds every user-facing reply string. Fields left out of the
// YAML file keep their built-in default.
type Catalog struct {
	Help           string `yaml:"help"`
	PromptText     string `yaml:"prompt_text"`
	PromptDateTime string `yaml:"prompt_datetime"`
	Saved          string `yaml:"saved"`
	BadDateTime    string `yaml:"bad_datetime"`
	PastTime       string `yaml:"past_time"`
	ListHeader     string `yaml:"list_header"`
	ListEmpty      string `yaml:"list_empty"`
	DeletePrompt   string `yaml:"delete_prompt"`
	DeleteNone     string `yaml:"delete_none"`
	Deleted        string `yaml:"deleted"`
	DeleteGone     string `yaml:"delete_gone"`
	BadIndex       string `yaml:"bad_index"`
	ClearPrompt    string `yaml:"clear_prompt"`
	ClearCancelled string `yaml:"clear_cancelled"`
	Delivery       string `yaml:"delivery"`
	StatsFormat    string `yaml:"stats"`
}

// Default returns the built-in English catalog.
func Default() *Catalog {
	return &Catalog{
		Help: "I can remind you of things.\n\n" +
			"/add - create a reminder\n" +
			"/all - list your reminders\n" +
			"/delete - delete one reminder\n" +
			"/clear - delete all reminders\n" +
			"/cleardone - delete delivered reminders\n" +
			"/stats - usage statistics",
		PromptText:     "📝 *What should I remind you about?*",
		PromptDateTime: "📅 *When?* (HH:MM DD/MM/YYYY, e.g. 14:30 30/05/2025)",
		Saved:          "✅ Reminder saved for %s",
		BadDateTime:    "❌ Invalid date/time format. Start again with /add",
		PastTime:       "❌ That moment is already in the past. Start again with /add",
		ListHeader:     "*Your reminders:*",
		ListEmpty:      "No reminders set.",
		DeletePrompt:   "Which reminder should I delete? Reply with its number.",
		DeleteNone:     "You have no active reminders.",
		Deleted:        "🗑 Reminder deleted.",
		DeleteGone:     "That reminder no longer exists.",
		BadIndex:       "❌ That is not a valid number from the list. Start again with /delete",
		ClearPrompt:    "⚠️ This removes *all* your reminders. Reply %s to proceed; anything else cancels.",
		ClearCancelled: "Clear cancelled, nothing was removed.",
		Delivery:       "🔔 *Reminder:* %s",
		StatsFormat:    "Messages from you: %d\nReminders: %d (%d active)\nTotal messages handled: %d",
	}
}

// Load reads the YAML catalog at path over the defaults. A missing file
// is not an error: the defaults are returned as-is.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}
	return c, nil
}

// RenderSaved fills the saved-confirmation with the trigger time.
func (c *Catalog) RenderSaved(triggerAt time.Time) string {
	return fmt.Sprintf(c.Saved, triggerAt.Format(DisplayLayout))
}

// RenderDelivery fills the delivery line with the reminder text.
func (c *Catalog) RenderDelivery(text string) string {
	return fmt.Sprintf(c.Delivery, text)
}

// RenderClearPrompt fills the clear confirmation prompt with the keyword.
func (c *Catalog) RenderClearPrompt(keyword string) string {
	return fmt.Sprintf(c.ClearPrompt, keyword)
}
