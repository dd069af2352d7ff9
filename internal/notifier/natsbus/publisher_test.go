package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/notifier"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return f.err
}

func TestNotifyPublishesJSON(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, "")
	n := model.Notification{Kind: model.KindEarlyWarning, Boss: "Shy", ServerID: "BETA"}
	if err := p.Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if fc.subject != "bosswatch.notifications.early_warning" {
		t.Fatalf("unexpected subject %q", fc.subject)
	}
	var got model.Notification
	if err := json.Unmarshal(fc.data, &got); err != nil || got.Boss != "Shy" {
		t.Fatalf("unexpected payload %s (%v)", fc.data, err)
	}
}

func TestAuthorizationErrorIsPermissionDenied(t *testing.T) {
	p := newPublisher(&fakeConn{err: nats.ErrAuthorization}, "bw")
	err := p.Notify(context.Background(), model.Notification{Kind: model.KindSpawnOccurred})
	if !errors.Is(err, notifier.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}
