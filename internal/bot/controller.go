// Package bot routes inbound chat events through the session manager and
// the store, and renders replies.
package bot

import (
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GregPesc/bot-telegram/internal/gateway"
	"github.com/GregPesc/bot-telegram/internal/session"
	"github.com/GregPesc/bot-telegram/internal/store"
	"github.com/GregPesc/bot-telegram/internal/templates"
	"github.com/GregPesc/bot-telegram/pkg/models"
)

// Controller is the conversation controller: commands open sessions or
// format read-only views; free text advances whichever session is open.
type Controller struct {
	store    *store.Store
	sessions *session.Manager
	sender   gateway.Sender
	catalog  *templates.Catalog
}

// New creates a controller.
func New(st *store.Store, sessions *session.Manager, sender gateway.Sender, catalog *templates.Catalog) *Controller {
	return &Controller{
		store:    st,
		sessions: sessions,
		sender:   sender,
		catalog:  catalog,
	}
}

// HandleCommand reacts to an already-tokenized command trigger. Commands
// hold no state of their own: they begin sessions or read the store.
func (c *Controller) HandleCommand(ev gateway.Inbound, name string) {
	switch name {
	case "start", "help":
		c.reply(ev, c.catalog.Help)

	case "add":
		c.sessions.BeginCreate(ev.UserID)
		c.reply(ev, c.catalog.PromptText)

	case "all", "list":
		u := c.store.GetUser(ev.UserID)
		c.reply(ev, formatList(c.catalog, u.Reminders))

	case "delete":
		u := c.store.GetUser(ev.UserID)
		active := u.ActiveReminders()
		if len(active) == 0 {
			c.reply(ev, c.catalog.DeleteNone)
			return
		}
		c.sessions.BeginDelete(ev.UserID, active)
		c.reply(ev, formatDeletePrompt(c.catalog, active))

	case "clear":
		c.sessions.BeginClear(ev.UserID)
		c.reply(ev, c.catalog.RenderClearPrompt(session.ConfirmKeyword))

	case "cleardone":
		res, err := c.store.ClearReminders(ev.UserID, store.ClearCompleted)
		if err != nil {
			log.Error().Err(err).Int64("userId", ev.UserID).Msg("Clear completed failed to persist")
		}
		c.reply(ev, res.Outcome)

	case "stats":
		u := c.store.GetUser(ev.UserID)
		c.reply(ev, formatStats(c.catalog, u, c.store.Stats()))

	default:
		c.reply(ev, c.catalog.Help)
	}
}

// HandleText routes one free-text event. A deletion or clear session is
// checked first and returns early: a reply meant as a deletion index must
// not be miscounted as a chat message. Only then is user activity
// recorded and the creation flow advanced.
func (c *Controller) HandleText(ev gateway.Inbound) {
	if strings.TrimSpace(ev.Text) == "" {
		return
	}

	if open, ok := c.sessions.Current(ev.UserID); ok && open.Kind != session.KindCreate {
		res, _ := c.sessions.Advance(ev.UserID, ev.Text)
		switch open.Kind {
		case session.KindDelete:
			c.finishDelete(ev, res)
		case session.KindClear:
			c.finishClear(ev, res)
		}
		return
	}

	c.recordActivity(ev)

	if _, ok := c.sessions.Current(ev.UserID); !ok {
		return
	}
	res, _ := c.sessions.Advance(ev.UserID, ev.Text)
	c.finishCreate(ev, res)
}

// recordActivity updates the user's bookkeeping fields and the global
// message counter.
func (c *Controller) recordActivity(ev gateway.Inbound) {
	upd := models.UserUpdate{BumpMessageCount: true}
	if ev.FirstName != "" {
		upd.FirstName = &ev.FirstName
	}
	if ev.Username != "" {
		upd.Username = &ev.Username
	}
	if err := c.store.UpdateUser(ev.UserID, upd); err != nil {
		log.Error().Err(err).Int64("userId", ev.UserID).Msg("Activity update failed to persist")
	}
}

func (c *Controller) finishCreate(ev gateway.Inbound, res session.Result) {
	switch res.Status {
	case session.NeedsMoreInput:
		if open, ok := c.sessions.Current(ev.UserID); ok && open.Step == session.StepAwaitingDateTime {
			c.reply(ev, c.catalog.PromptDateTime)
		}

	case session.Completed:
		r, err := c.store.AddReminder(ev.UserID, res.Draft.Text, res.Draft.TriggerAt)
		switch {
		case errors.Is(err, store.ErrPastTime):
			// The deadline slipped past between validation and commit.
			c.reply(ev, c.catalog.PastTime)
		case err != nil:
			// Persistence failed but the reminder is live in memory.
			log.Error().Err(err).Int64("userId", ev.UserID).Msg("Reminder saved in memory only")
			c.reply(ev, c.catalog.RenderSaved(r.TriggerAt))
		default:
			c.reply(ev, c.catalog.RenderSaved(r.TriggerAt))
		}

	case session.Rejected:
		if res.Reason == session.ReasonPastTime {
			c.reply(ev, c.catalog.PastTime)
			return
		}
		c.reply(ev, c.catalog.BadDateTime)
	}
}

func (c *Controller) finishDelete(ev gateway.Inbound, res session.Result) {
	switch res.Status {
	case session.Completed:
		removed, err := c.store.DeleteReminder(ev.UserID, res.DeleteID)
		if err != nil {
			log.Error().Err(err).Int64("userId", ev.UserID).Msg("Reminder deletion failed to persist")
		}
		if removed {
			c.reply(ev, c.catalog.Deleted)
			return
		}
		c.reply(ev, c.catalog.DeleteGone)

	case session.Rejected:
		c.reply(ev, c.catalog.BadIndex)
	}
}

func (c *Controller) finishClear(ev gateway.Inbound, res session.Result) {
	if res.Status != session.Completed || !res.Confirmed {
		c.reply(ev, c.catalog.ClearCancelled)
		return
	}
	out, err := c.store.ClearReminders(ev.UserID, store.ClearAll)
	if err != nil {
		log.Error().Err(err).Int64("userId", ev.UserID).Msg("Clear failed to persist")
	}
	c.reply(ev, out.Outcome)
}

func (c *Controller) reply(ev gateway.Inbound, text string) {
	if err := c.sender.Send(ev.ChatID, text); err != nil {
		log.Warn().Err(err).Int64("chatId", ev.ChatID).Msg("Reply send failed")
	}
}
