// Package natsbus publishes spawn notifications on a NATS subject so other
// services (bots, overlays) can react to them.
package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/notifier"
)

const DefaultSubject = "bosswatch.notifications"

type conn interface {
	Publish(subject string, data []byte) error
}

type Publisher struct {
	nc      *nats.Conn
	conn    conn
	subject string
}

// Connect dials url and returns a Publisher for subject.
func Connect(url, subject string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []nats.Option{
		nats.Name("bosswatch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", "error", err)
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	p := newPublisher(nc, subject)
	p.nc = nc
	return p, nil
}

func newPublisher(c conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: c, subject: subject}
}

func (p *Publisher) Name() string { return "nats" }

// Subject returns the subject a notification is published on, e.g.
// bosswatch.notifications.spawn.
func (p *Publisher) Subject(n model.Notification) string {
	return p.subject + "." + strings.ToLower(string(n.Kind))
}

func (p *Publisher) Notify(_ context.Context, n model.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.conn.Publish(p.Subject(n), data); err != nil {
		if errors.Is(err, nats.ErrAuthorization) || errors.Is(err, nats.ErrPermissionViolation) {
			return fmt.Errorf("%w: %v", notifier.ErrPermissionDenied, err)
		}
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
