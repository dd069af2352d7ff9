// Package telegram answers bot commands about the spawn schedule and sends
// spawn notifications to configured chats.
package telegram

import (
	"context"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"

	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/resolver"
)

// Sender is the part of the bot API the router and sink need.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// OffsetSource gives the current server offset table.
type OffsetSource interface {
	Current() []model.ServerOffset
}

// Router wires Telegram updates to command handlers.
type Router struct {
	bot     Sender
	logger  *slog.Logger
	bosses  []model.Boss
	offsets OffsetSource
	clock   clockwork.Clock
	loc     *time.Location
}

func NewRouter(bot Sender, logger *slog.Logger, bosses []model.Boss, offsets OffsetSource, clock clockwork.Clock, loc *time.Location) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Router{bot: bot, logger: logger, bosses: bosses, offsets: offsets, clock: clock, loc: loc}
}

func (r *Router) now() time.Time {
	return r.clock.Now().In(r.loc)
}

// HandleUpdate routes a single update to the matching command.
func (r *Router) HandleUpdate(_ context.Context, upd tgbotapi.Update) {
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	chatID := upd.Message.Chat.ID
	cmd := command(upd.Message.Text)
	if cmd == "" {
		return
	}

	switch cmd {
	case "start":
		msg := htmlMessage(chatID, startText)
		msg.ReplyMarkup = mainMenuKeyboard()
		r.send(msg)
	case "next", "proximo":
		now := r.now()
		r.send(htmlMessage(chatID, FormatNext(resolver.ResolveNext(now, r.bosses, r.offsets.Current()), now)))
	case "today", "todos":
		r.send(htmlMessage(chatID, FormatToday(r.bosses, r.now())))
	case "help":
		r.send(htmlMessage(chatID, helpText(r.bosses)))
	default:
		r.handleBoss(chatID, cmd)
	}
}

func (r *Router) handleBoss(chatID int64, cmd string) {
	var texts []string
	for _, b := range r.bosses {
		if commandName(b.Name) == cmd {
			texts = append(texts, FormatBoss(b))
		}
	}
	if len(texts) == 0 {
		r.send(htmlMessage(chatID, unknownText))
		return
	}
	r.send(htmlMessage(chatID, strings.Join(texts, "\n\n")))
}

func (r *Router) send(msg tgbotapi.MessageConfig) {
	if _, err := r.bot.Send(msg); err != nil {
		r.logger.Error("Failed to send telegram message", "chat_id", msg.ChatID, "error", err)
	}
}

// command extracts the lowercased command from "/Next@bosswatch_bot args".
func command(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(text[1:], " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd)
}

func htmlMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}
