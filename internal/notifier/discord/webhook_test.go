package discord

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/notifier"
)

func TestNotifyPostsEmbed(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := model.Notification{
		Kind:     model.KindSpawnOccurred,
		Boss:     "Draxos",
		ServerID: "ALFA",
		Title:    "🐉 (ALFA) - Draxos has spawned!",
		Body:     "Laboratório Secreto (Lab) at 09:07",
		At:       time.Date(2024, 3, 10, 9, 7, 0, 0, time.UTC),
	}
	if err := NewWebhook(srv.URL).Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got.Content != n.Title || len(got.Embeds) != 1 {
		t.Fatalf("unexpected payload %+v", got)
	}
	if got.Embeds[0].Color != colorSpawn || got.Embeds[0].Footer.Text != "Server ALFA" {
		t.Fatalf("unexpected embed %+v", got.Embeds[0])
	}
}

func TestDeletedWebhookIsPermissionDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Unknown Webhook"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL).Notify(context.Background(), model.Notification{Title: "x"})
	if !errors.Is(err, notifier.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}
