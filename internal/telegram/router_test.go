package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"

	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/notifier"
	"github.com/noahxzhu/bosswatch/internal/schedule"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

type staticOffsets []model.ServerOffset

func (s staticOffsets) Current() []model.ServerOffset { return s }

func newTestRouter(t *testing.T, offsets staticOffsets) (*Router, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 10, 8, 50, 0, 0, time.UTC))
	return NewRouter(sender, nil, schedule.Default(), offsets, clock, time.UTC), sender
}

func update(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: 42}}}
}

func TestCommandParsing(t *testing.T) {
	cases := map[string]string{
		"/next":               "next",
		"/Next@bosswatch_bot": "next",
		"/draxos now":         "draxos",
		"hello":               "",
	}
	for in, want := range cases {
		if got := command(in); got != want {
			t.Errorf("command(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNextCommand(t *testing.T) {
	r, sender := newTestRouter(t, staticOffsets{{ServerID: "ALFA", Minute: 7}})
	r.bosses = schedule.Find(r.bosses, "Draxos")
	r.HandleUpdate(context.Background(), update("/proximo"))
	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.ChatID != 42 || msg.ParseMode != tgbotapi.ModeHTML {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !strings.Contains(msg.Text, "Draxos") || !strings.Contains(msg.Text, "0h 17min") {
		t.Fatalf("unexpected text %q", msg.Text)
	}
}

func TestNextCommandAwaitingOffsets(t *testing.T) {
	r, sender := newTestRouter(t, nil)
	r.HandleUpdate(context.Background(), update("/next"))
	if sender.sent[0].Text != awaitingText {
		t.Fatalf("unexpected text %q", sender.sent[0].Text)
	}
}

func TestBossCommand(t *testing.T) {
	r, sender := newTestRouter(t, nil)
	r.HandleUpdate(context.Background(), update("/dragaosnowstorn"))
	if !strings.Contains(sender.sent[0].Text, "Dragão Snowstorn") {
		t.Fatalf("unexpected text %q", sender.sent[0].Text)
	}

	r.HandleUpdate(context.Background(), update("/nobody"))
	if sender.sent[1].Text != unknownText {
		t.Fatalf("unexpected text %q", sender.sent[1].Text)
	}
}

func TestFormatToday(t *testing.T) {
	bosses := []model.Boss{
		{Name: "Late", Location: "B", SpawnHours: []int{20}},
		{Name: "Early", Location: "A", SpawnHours: []int{1, 9}},
	}
	text := FormatToday(bosses, time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC))
	lines := strings.Split(text, "\n")
	want := []string{
		"✅ <b>01:XX</b> - Early (A)",
		"🔥 <b>09:XX</b> - Early (A)",
		"⏳ <b>20:XX</b> - Late (B)",
	}
	got := lines[len(lines)-3:]
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSinkUnauthorizedIsPermissionDenied(t *testing.T) {
	sender := &fakeSender{err: &tgbotapi.Error{Code: 401, Message: "Unauthorized"}}
	err := NewSink(sender, []int64{1, 2}).Notify(context.Background(), model.Notification{Title: "t", Body: "b"})
	if !errors.Is(err, notifier.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestSinkSendsToEveryChat(t *testing.T) {
	sender := &fakeSender{}
	if err := NewSink(sender, []int64{1, 2}).Notify(context.Background(), model.Notification{Title: "A & B", Body: "x"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(sender.sent) != 2 || !strings.Contains(sender.sent[1].Text, "A &amp; B") {
		t.Fatalf("unexpected messages %+v", sender.sent)
	}
}

func TestCommandName(t *testing.T) {
	if got := commandName("Hopi de Lacinho (Evento)"); got != "hopidelacinhoevento" {
		t.Fatalf("got %q", got)
	}
	if got := commandName("Fúria"); got != "furia" {
		t.Fatalf("got %q", got)
	}
}
