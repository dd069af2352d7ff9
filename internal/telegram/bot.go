package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/notifier"
)

// Bot owns the API connection and polls for updates.
type Bot struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

func NewBot(token string, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	api.Debug = false
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Telegram bot authorized", "username", api.Self.UserName)
	return &Bot{api: api, logger: logger}, nil
}

// API returns the sender used by routers and sinks.
func (b *Bot) API() *tgbotapi.BotAPI { return b.api }

// Run feeds updates to router until ctx is cancelled.
func (b *Bot) Run(ctx context.Context, router *Router) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Telegram bot stopped")
			return
		case upd, ok := <-updCh:
			if !ok {
				return
			}
			router.HandleUpdate(ctx, upd)
		}
	}
}

// Sink sends notifications to a fixed set of chats.
type Sink struct {
	bot     Sender
	chatIDs []int64
}

func NewSink(bot Sender, chatIDs []int64) *Sink {
	return &Sink{bot: bot, chatIDs: chatIDs}
}

func (s *Sink) Name() string { return "telegram" }

func (s *Sink) Notify(_ context.Context, n model.Notification) error {
	var errs []error
	for _, id := range s.chatIDs {
		if _, err := s.bot.Send(htmlMessage(id, FormatNotification(n))); err != nil {
			var apiErr *tgbotapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
				return fmt.Errorf("%w: %v", notifier.ErrPermissionDenied, err)
			}
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
