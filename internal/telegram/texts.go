package telegram

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/noahxzhu/bosswatch/internal/model"
)

const (
	startText = "🐉 <b>Welcome to bosswatch!</b>\n\n" +
		"Available commands:\n" +
		"/next - Next boss to spawn\n" +
		"/today - Every boss spawning today\n" +
		"/help - All commands"
	unknownText  = "❌ Unknown command.\nUse /help to see the available commands."
	awaitingText = "⏳ Waiting for server data, try again in a moment."
)

// commandName is the slash command for a boss, e.g. "Dragão Snowstorn" gives
// "dragaosnowstorn". Anything outside [a-z0-9] is dropped.
func commandName(boss string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, accentFolder.Replace(strings.ToLower(boss)))
}

var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

func helpText(bosses []model.Boss) string {
	var b strings.Builder
	b.WriteString("🤖 <b>Bot commands</b>\n\n")
	b.WriteString("/start - Start the bot\n")
	b.WriteString("/next - Next boss\n")
	b.WriteString("/today - Today's bosses\n")
	seen := make(map[string]bool)
	for _, boss := range bosses {
		cmd := commandName(boss.Name)
		if seen[cmd] {
			continue
		}
		seen[cmd] = true
		fmt.Fprintf(&b, "/%s - %s hours\n", cmd, html.EscapeString(boss.Name))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatNext renders the next spawn, or the waiting text when there is none.
func FormatNext(inst *model.SpawnInstance, now time.Time) string {
	if inst == nil {
		return awaitingText
	}
	left := inst.Remaining(now)
	return fmt.Sprintf("⏰ <b>Next boss</b>\n\n🐉 <b>%s</b> (%s)\n📍 %s\n⏱️ In: %dh %dmin\n🕐 At: %s",
		html.EscapeString(inst.Boss.Name),
		inst.ServerID,
		html.EscapeString(inst.Boss.Location),
		int(left.Hours()),
		int(left.Minutes())%60,
		inst.SpawnTime(),
	)
}

// FormatToday lists every spawn hour of the day with its status relative to now.
func FormatToday(bosses []model.Boss, now time.Time) string {
	type slot struct {
		hour     int
		name     string
		location string
	}
	var slots []slot
	for _, boss := range bosses {
		for _, h := range boss.SpawnHours {
			slots = append(slots, slot{hour: h, name: boss.Name, location: boss.Location})
		}
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].hour < slots[j].hour })

	var b strings.Builder
	b.WriteString("📅 <b>Today's bosses</b>\n\n")
	for _, s := range slots {
		status := "⏳"
		switch {
		case s.hour < now.Hour():
			status = "✅"
		case s.hour == now.Hour():
			status = "🔥"
		}
		fmt.Fprintf(&b, "%s <b>%02d:XX</b> - %s (%s)\n", status, s.hour, html.EscapeString(s.name), html.EscapeString(s.location))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatBoss renders the location and spawn hours of one boss.
func FormatBoss(boss model.Boss) string {
	hours := make([]string, len(boss.SpawnHours))
	for i, h := range boss.SpawnHours {
		hours[i] = fmt.Sprintf("%02d:XX", h)
	}
	return fmt.Sprintf("🐉 <b>%s</b>\n\n📍 <b>Location:</b> %s\n🕐 <b>Hours:</b> %s\n\n💡 Use /next to see the next spawn!",
		html.EscapeString(boss.Name),
		html.EscapeString(boss.Location),
		strings.Join(hours, ", "),
	)
}

// FormatNotification renders an outbound notification.
func FormatNotification(n model.Notification) string {
	return fmt.Sprintf("<b>%s</b>\n📍 %s", html.EscapeString(n.Title), html.EscapeString(n.Body))
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/next"),
			tgbotapi.NewKeyboardButton("/today"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/help"),
		),
	)
}
