package pushover

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/notifier"
)

func TestNotifySendsForm(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		got = map[string]string{
			"token":    r.PostForm.Get("token"),
			"title":    r.PostForm.Get("title"),
			"priority": r.PostForm.Get("priority"),
		}
		w.Write([]byte(`{"status":1}`))
	}))
	defer srv.Close()

	c := NewClient("tok", "usr")
	c.APIURL = srv.URL
	err := c.Notify(context.Background(), model.Notification{Title: "Draxos has spawned!", Body: "Lab at 09:07", Favorite: true})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got["token"] != "tok" || got["title"] != "Draxos has spawned!" || got["priority"] != "1" {
		t.Fatalf("unexpected form %v", got)
	}
}

func TestInvalidTokenIsPermissionDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"token":"invalid","status":0}`))
	}))
	defer srv.Close()

	c := NewClient("bad", "usr")
	c.APIURL = srv.URL
	err := c.Notify(context.Background(), model.Notification{Title: "x"})
	if !errors.Is(err, notifier.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("tok", "usr")
	c.APIURL = srv.URL
	err := c.Notify(context.Background(), model.Notification{Title: "x"})
	if err == nil || errors.Is(err, notifier.ErrPermissionDenied) {
		t.Fatalf("expected a transient error, got %v", err)
	}
}
