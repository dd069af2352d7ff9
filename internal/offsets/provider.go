// Package offsets fetches the per-server spawn minute table and keeps the last
// good copy for the resolver.
package offsets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/noahxzhu/bosswatch/internal/model"
)

type Source string

const (
	SourceNone     Source = "none"
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

type Config struct {
	Endpoint  string
	Timeout   time.Duration
	Retries   int
	RetryWait time.Duration
}

func (c *Config) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryWait <= 0 {
		c.RetryWait = time.Second
	}
}

// Provider is safe for concurrent use. The countdown reads Current every
// second while Refresh runs on its own goroutine.
type Provider struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	clock   clockwork.Clock

	refreshing atomic.Bool

	mu          sync.RWMutex
	current     []model.ServerOffset
	source      Source
	lastRefresh time.Time
}

func NewProvider(cfg Config, logger *slog.Logger, clock clockwork.Clock) *Provider {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Provider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.RetryWait), 1),
		logger:  logger,
		clock:   clock,
		source:  SourceNone,
	}
}

// Refresh fetches the table, retrying up to cfg.Retries times. On failure the
// built-in table is installed and the last error is returned; the provider is
// never left empty after a Refresh.
func (p *Provider) Refresh(ctx context.Context) error {
	if p.cfg.Endpoint == "" {
		p.install(Fallback(), SourceFallback)
		return nil
	}

	var lastErr error
	for attempt := 0; attempt <= p.cfg.Retries; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			lastErr = fmt.Errorf("rate limit wait: %w", err)
			break
		}
		table, err := p.fetch(ctx)
		if err == nil {
			p.install(table, SourceRemote)
			p.logger.Info("Server offsets refreshed", "servers", len(table), "attempt", attempt+1)
			return nil
		}
		lastErr = err
		p.logger.Warn("Server offsets fetch failed", "attempt", attempt+1, "error", err)
	}

	p.install(Fallback(), SourceFallback)
	p.logger.Error("Using fallback server offsets", "error", lastErr)
	return lastErr
}

// RefreshAsync starts a background Refresh unless one is already running and
// reports whether it started one.
func (p *Provider) RefreshAsync(ctx context.Context) bool {
	if !p.refreshing.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer p.refreshing.Store(false)
		_ = p.Refresh(ctx)
	}()
	return true
}

func (p *Provider) Refreshing() bool {
	return p.refreshing.Load()
}

func (p *Provider) fetch(ctx context.Context) ([]model.ServerOffset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("offsets endpoint returned %s: %s", resp.Status, truncate(body, 200))
	}
	return Parse(body)
}

func (p *Provider) install(table []model.ServerOffset, src Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = table
	p.source = src
	p.lastRefresh = p.clock.Now()
}

// Current returns a copy of the last installed table. It is empty only before
// the first Refresh.
func (p *Provider) Current() []model.ServerOffset {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]model.ServerOffset, len(p.current))
	copy(out, p.current)
	return out
}

func (p *Provider) Source() Source {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source
}

func (p *Provider) LastRefresh() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastRefresh
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
