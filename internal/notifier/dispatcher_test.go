package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/noahxzhu/bosswatch/internal/model"
)

type stubGate struct {
	mu      sync.Mutex
	enabled bool
}

func (g *stubGate) NotificationsEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

func (g *stubGate) DisableNotifications() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = false
}

type stubSink struct {
	name string
	err  error
	mu   sync.Mutex
	got  []model.Notification
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Notify(_ context.Context, n model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.err
}

func (s *stubSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatchDelivers(t *testing.T) {
	gate := &stubGate{enabled: true}
	a, b := &stubSink{name: "a"}, &stubSink{name: "b"}
	d := NewDispatcher(gate, quietLogger(), 4, a, b)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	defer func() { cancel(); d.Wait() }()

	if !d.Dispatch(model.Notification{Boss: "Draxos", Kind: model.KindSpawnOccurred}) {
		t.Fatal("expected notification to be queued")
	}
	waitFor(t, func() bool { return a.count() == 1 && b.count() == 1 })
}

func TestDispatchSkipsWhenDisabled(t *testing.T) {
	gate := &stubGate{enabled: false}
	d := NewDispatcher(gate, quietLogger(), 4, &stubSink{name: "a"})
	if d.Dispatch(model.Notification{Boss: "Draxos"}) {
		t.Fatal("expected disabled gate to reject")
	}
}

func TestPermissionDeniedDisablesNotifications(t *testing.T) {
	gate := &stubGate{enabled: true}
	denied := &stubSink{name: "denied", err: fmt.Errorf("push: %w", ErrPermissionDenied)}
	after := &stubSink{name: "after"}
	d := NewDispatcher(gate, quietLogger(), 4, denied, after)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	defer func() { cancel(); d.Wait() }()

	d.Dispatch(model.Notification{Boss: "Draxos"})
	waitFor(t, func() bool { return !gate.NotificationsEnabled() })
	if after.count() != 0 {
		t.Fatal("expected delivery to stop after permission denied")
	}
	if d.Dispatch(model.Notification{Boss: "Greedy"}) {
		t.Fatal("expected later notifications to be rejected")
	}
}

func TestDispatchDropsWhenFull(t *testing.T) {
	gate := &stubGate{enabled: true}
	d := NewDispatcher(gate, quietLogger(), 1, &stubSink{name: "a"})
	if !d.Dispatch(model.Notification{Boss: "A"}) {
		t.Fatal("expected first notification to be queued")
	}
	if d.Dispatch(model.Notification{Boss: "B"}) {
		t.Fatal("expected second notification to be dropped")
	}
}

func TestOtherErrorsKeepDelivering(t *testing.T) {
	gate := &stubGate{enabled: true}
	broken := &stubSink{name: "broken", err: errors.New("timeout")}
	ok := &stubSink{name: "ok"}
	d := NewDispatcher(gate, quietLogger(), 4, broken, ok)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	defer func() { cancel(); d.Wait() }()

	d.Dispatch(model.Notification{Boss: "Draxos"})
	waitFor(t, func() bool { return ok.count() == 1 })
	if !gate.NotificationsEnabled() {
		t.Fatal("transient errors must not disable notifications")
	}
}
