package notify

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"

	"refurbtracker/internal/domain"
)

// TelegramProvider delivers messages through the Telegram bot API. The user
// id doubles as the chat id, since users register by talking to the bot.
type TelegramProvider struct {
	bot *tgbot.Bot
	log logrus.FieldLogger
}

// NewTelegramProvider wraps an already-connected bot instance.
func NewTelegramProvider(b *tgbot.Bot, logger logrus.FieldLogger) *TelegramProvider {
	return &TelegramProvider{
		bot: b,
		log: logger.WithField("component", "telegram_provider"),
	}
}

// Name implements Provider.
func (p *TelegramProvider) Name() string { return "telegram" }

// Send implements Provider.
func (p *TelegramProvider) Send(ctx context.Context, user domain.User, message string) error {
	_, err := p.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: user.ID,
		Text:   message,
	})
	if err != nil {
		p.log.WithError(err).WithField("user_id", user.ID).Error("Failed to send Telegram message")
		return fmt.Errorf("telegram send to user %d: %w", user.ID, err)
	}
	return nil
}
