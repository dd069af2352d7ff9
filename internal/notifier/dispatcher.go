// Package notifier delivers rendered spawn notifications to the outbound
// channels without blocking the countdown tick.
package notifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/noahxzhu/bosswatch/internal/model"
)

// ErrPermissionDenied is returned (wrapped) by a sink when the platform refuses
// to deliver. The dispatcher then turns notifications off in the profile.
var ErrPermissionDenied = errors.New("notification permission denied")

type Sink interface {
	Name() string
	Notify(ctx context.Context, n model.Notification) error
}

// Gate is the profile switch that enables delivery.
type Gate interface {
	NotificationsEnabled() bool
	DisableNotifications()
}

const (
	DefaultQueueSize = 64
	sendTimeout      = 10 * time.Second
)

type Dispatcher struct {
	gate   Gate
	sinks  []Sink
	queue  chan model.Notification
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewDispatcher(gate Gate, logger *slog.Logger, queueSize int, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		gate:   gate,
		sinks:  sinks,
		queue:  make(chan model.Notification, queueSize),
		logger: logger,
	}
}

// Sinks returns the names of the configured sinks.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Dispatch enqueues n and reports whether it was accepted. It never blocks.
func (d *Dispatcher) Dispatch(n model.Notification) bool {
	if d.gate != nil && !d.gate.NotificationsEnabled() {
		return false
	}
	select {
	case d.queue <- n:
		return true
	default:
		d.logger.Warn("Notification queue full, dropping", "boss", n.Boss, "kind", n.Kind)
		return false
	}
}

// Start delivers queued notifications on a background goroutine until ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx)
	}()
}

func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-d.queue:
			d.deliver(ctx, n)
		}
	}
}

// Wait blocks until the delivery goroutine has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, n model.Notification) {
	for _, sink := range d.sinks {
		if d.gate != nil && !d.gate.NotificationsEnabled() {
			return
		}
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := sink.Notify(sendCtx, n)
		cancel()
		if err == nil {
			continue
		}
		if errors.Is(err, ErrPermissionDenied) {
			d.logger.Warn("Notification permission denied, disabling notifications", "sink", sink.Name(), "error", err)
			if d.gate != nil {
				d.gate.DisableNotifications()
			}
			return
		}
		d.logger.Error("Failed to deliver notification", "sink", sink.Name(), "boss", n.Boss, "error", err)
	}
}

// LogSink logs every notification.
type LogSink struct {
	Logger *slog.Logger
}

func (LogSink) Name() string { return "log" }

func (s LogSink) Notify(_ context.Context, n model.Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Notification", "kind", n.Kind, "title", n.Title, "body", n.Body, "tag", n.Tag, "recovered", n.Recovered)
	return nil
}
