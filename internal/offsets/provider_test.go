package offsets

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseFlexibleMinutes(t *testing.T) {
	data := []byte(`[
		{"id": "ALFA", "minute": "07"},
		{"id": "BETA", "minute": 31},
		{"Idhas": "GAMA", "Horario": "01"},
		{"id": "ALFA", "minute": 9},
		{"id": "", "minute": 5},
		{"id": "DELTA", "minute": 75},
		{"id": "EPSILON", "minute": "x"}
	]`)
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 valid rows, got %+v", got)
	}
	if got[0].ServerID != "ALFA" || got[0].Minute != 7 {
		t.Fatalf("unexpected first row %+v", got[0])
	}
	if got[1].Minute != 31 || got[2].ServerID != "GAMA" || got[2].Minute != 1 {
		t.Fatalf("unexpected rows %+v", got)
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	if _, err := Parse([]byte(`[]`)); !errors.Is(err, ErrNoOffsets) {
		t.Fatalf("expected ErrNoOffsets, got %v", err)
	}
	if _, err := Parse([]byte(`{"oops":true}`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRefreshRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id":"ALFA","minute":"07"},{"id":"BETA","minute":"12"}]`)
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	p := NewProvider(Config{Endpoint: srv.URL, Retries: 2, RetryWait: time.Millisecond}, quietLogger(), clock)
	if p.Source() != SourceNone || len(p.Current()) != 0 {
		t.Fatal("expected empty provider before the first refresh")
	}
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if p.Source() != SourceRemote || len(p.Current()) != 2 {
		t.Fatalf("unexpected state: source=%s table=%+v", p.Source(), p.Current())
	}
	if !p.LastRefresh().Equal(clock.Now()) {
		t.Fatalf("unexpected last refresh %s", p.LastRefresh())
	}
}

func TestRefreshFallsBackAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewProvider(Config{Endpoint: srv.URL, Retries: 2, RetryWait: time.Millisecond}, quietLogger(), nil)
	if err := p.Refresh(context.Background()); err == nil {
		t.Fatal("expected the fetch error to be reported")
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
	if p.Source() != SourceFallback || len(p.Current()) != len(Fallback()) {
		t.Fatalf("expected fallback table, got %s %+v", p.Source(), p.Current())
	}
}

func TestRefreshWithoutEndpointUsesFallback(t *testing.T) {
	p := NewProvider(Config{}, quietLogger(), nil)
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	table := p.Current()
	if len(table) != 14 || table[0].ServerID != "ALFA" || table[0].Minute != 1 {
		t.Fatalf("unexpected fallback table %+v", table)
	}
}

func TestRefreshAsyncIsSingleFlight(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		io.WriteString(w, `[{"id":"ALFA","minute":7}]`)
	}))
	defer srv.Close()

	p := NewProvider(Config{Endpoint: srv.URL, RetryWait: time.Millisecond}, quietLogger(), nil)
	if !p.RefreshAsync(context.Background()) {
		t.Fatal("expected the first refresh to start")
	}
	if p.RefreshAsync(context.Background()) {
		t.Fatal("expected the second refresh to be skipped while one is in flight")
	}
	close(release)

	deadline := time.Now().Add(2 * time.Second)
	for p.Refreshing() {
		if time.Now().After(deadline) {
			t.Fatal("refresh did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if p.Source() != SourceRemote {
		t.Fatalf("expected remote source, got %s", p.Source())
	}
}
