// Package bot is the Telegram intake surface: users register themselves and
// inspect their rules by talking to the bot.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"refurbtracker/internal/domain"
	"refurbtracker/internal/storage"
	"refurbtracker/internal/tracker"
)

// Handler holds dependencies for the Telegram bot handlers.
type Handler struct {
	bot     *tgbot.Bot
	repo    storage.Repository
	tracker *tracker.Tracker
	log     logrus.FieldLogger
}

// NewHandler registers the command handlers on an existing bot instance.
func NewHandler(b *tgbot.Bot, repo storage.Repository, trk *tracker.Tracker, logger logrus.FieldLogger) *Handler {
	h := &Handler{
		bot:     b,
		repo:    repo,
		tracker: trk,
		log:     logger.WithField("component", "bot_handler"),
	}

	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, h.startHandler)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/stop", tgbot.MatchTypeExact, h.stopHandler)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/rules", tgbot.MatchTypeExact, h.rulesHandler)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "/status", tgbot.MatchTypeExact, h.statusHandler)
	b.RegisterHandler(tgbot.HandlerTypeMessageText, "", tgbot.MatchTypeContains, h.defaultHandler)

	h.log.Info("Telegram bot handler initialized")
	return h
}

// Start begins polling for updates. Blocks until ctx is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped")
}

// startHandler creates the user on first contact, or reactivates them.
func (h *Handler) startHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	log := h.log.WithFields(logrus.Fields{"user_id": userID, "command": "/start"})

	user, err := h.repo.GetUser(ctx, userID)
	if err != nil {
		user = domain.User{ID: userID, CreatedAt: time.Now()}
	}
	user.IsActive = true
	if err := h.repo.SaveUser(ctx, user); err != nil {
		log.WithError(err).Error("Failed to save user")
		h.reply(ctx, b, update, "Something went wrong, please try again later.")
		return
	}

	log.Info("User registered")
	h.reply(ctx, b, update,
		"You're in! I'll message you when new refurbished products match your rules.\n"+
			"Commands: /rules, /status, /stop")
}

// stopHandler mutes the user without deleting anything.
func (h *Handler) stopHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	log := h.log.WithFields(logrus.Fields{"user_id": userID, "command": "/stop"})

	user, err := h.repo.GetUser(ctx, userID)
	if err != nil {
		h.reply(ctx, b, update, "You're not registered yet. Send /start first.")
		return
	}
	user.IsActive = false
	if err := h.repo.SaveUser(ctx, user); err != nil {
		log.WithError(err).Error("Failed to save user")
		h.reply(ctx, b, update, "Something went wrong, please try again later.")
		return
	}
	h.reply(ctx, b, update, "Notifications paused. Send /start to resume.")
}

func (h *Handler) rulesHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID

	rules, err := h.repo.GetUserTrackingRules(ctx, userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("Failed to load rules")
		h.reply(ctx, b, update, "Something went wrong, please try again later.")
		return
	}
	h.reply(ctx, b, update, FormatRuleList(rules))
}

func (h *Handler) statusHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	status := h.tracker.Status()

	var msg strings.Builder
	if status.Running {
		msg.WriteString("Tracking is running.\n")
	} else {
		msg.WriteString("Tracking is stopped.\n")
	}
	if !status.LastRun.IsZero() {
		fmt.Fprintf(&msg, "Last pass: %s — %d scraped, %d new, %d user(s) notified.",
			status.LastRun.Format("2006-01-02 15:04 MST"),
			status.LastPass.Scraped, status.LastPass.NewProducts, status.LastPass.NotifiedUsers)
	}
	h.reply(ctx, b, update, msg.String())
}

func (h *Handler) defaultHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.log.WithFields(logrus.Fields{
		"user_id": update.Message.From.ID,
		"text":    update.Message.Text,
	}).Debug("Received unhandled message")
	h.reply(ctx, b, update, "Commands: /start, /stop, /rules, /status")
}

func (h *Handler) reply(ctx context.Context, b *tgbot.Bot, update *models.Update, text string) {
	_, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
	if err != nil {
		h.log.WithError(err).Error("Failed to send reply")
	}
}

// FormatRuleList renders a user's rules for display in the chat.
func FormatRuleList(rules []domain.TrackingRule) string {
	if len(rules) == 0 {
		return "You have no tracking rules yet. Create one through the API."
	}
	var b strings.Builder
	b.WriteString("Your tracking rules:\n")
	for i, r := range rules {
		status := "enabled"
		if !r.Enabled {
			status = "disabled"
		}
		fmt.Fprintf(&b, "\n%d. %s [%s]\n", i+1, r.Name, status)
		if desc := describeFilters(r.Filters); desc != "" {
			fmt.Fprintf(&b, "   %s\n", desc)
		}
	}
	return b.String()
}

func describeFilters(f domain.FilterSpec) string {
	var parts []string
	if f.ProductType != "" {
		parts = append(parts, f.ProductType)
	}
	if f.Chip != "" {
		parts = append(parts, "chip "+f.Chip)
	}
	if f.Color != "" {
		parts = append(parts, "color "+f.Color)
	}
	if f.MinMemory > 0 {
		parts = append(parts, fmt.Sprintf("memory ≥ %dGB", f.MinMemory))
	}
	if f.MinStorage != "" {
		parts = append(parts, "storage ≥ "+f.MinStorage)
	}
	if f.MaxPrice > 0 {
		parts = append(parts, fmt.Sprintf("price ≤ %d", f.MaxPrice))
	}
	return strings.Join(parts, ", ")
}
