// Package telegram adapts the Telegram Bot API to the gateway contract.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/GregPesc/bot-telegram/internal/gateway"
)

const pollTimeoutSeconds = 30

// Gateway wraps a long-polling Telegram bot connection. It implements
// gateway.Sender and feeds inbound updates to a gateway.Handler.
type Gateway struct {
	bot *tgbotapi.BotAPI
}

// New authenticates against the Bot API with the given token.
func New(token string) (*Gateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	log.Info().Str("username", bot.Self.UserName).Msg("Telegram bot authorized")
	return &Gateway{bot: bot}, nil
}

// Send delivers one Markdown-formatted message to a chat.
func (g *Gateway) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := g.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}

// Run long-polls for updates until ctx is cancelled, splitting commands
// from free text before handing events to the handler. Non-message
// updates and messages without a sender are dropped.
func (g *Gateway) Run(ctx context.Context, h gateway.Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := g.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			g.bot.StopReceivingUpdates()
			return ctx.Err()

		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg := update.Message
			if msg == nil || msg.From == nil {
				continue
			}

			ev := gateway.Inbound{
				UserID:    msg.From.ID,
				ChatID:    msg.Chat.ID,
				Text:      msg.Text,
				FirstName: msg.From.FirstName,
				Username:  msg.From.UserName,
			}

			if msg.IsCommand() {
				h.HandleCommand(ev, msg.Command())
				continue
			}
			h.HandleText(ev)
		}
	}
}
