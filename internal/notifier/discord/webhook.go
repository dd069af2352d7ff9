// Package discord posts spawn notifications to a Discord webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/notifier"
)

const (
	colorWarning = 0xF1C40F
	colorSpawn   = 0xE74C3C
)

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Color       int         `json:"color"`
	Timestamp   string      `json:"timestamp,omitempty"`
	Footer      embedFooter `json:"footer"`
}

type payload struct {
	Content string  `json:"content"`
	Embeds  []embed `json:"embeds"`
}

type Webhook struct {
	URL    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{URL: url, client: &http.Client{Timeout: 10 * time.Second}}
}

func (w *Webhook) Name() string { return "discord" }

func (w *Webhook) Notify(ctx context.Context, n model.Notification) error {
	color := colorWarning
	if n.Kind == model.KindSpawnOccurred {
		color = colorSpawn
	}
	body, err := json.Marshal(payload{
		Content: n.Title,
		Embeds: []embed{{
			Title:       n.Boss,
			Description: n.Body,
			Color:       color,
			Timestamp:   n.At.UTC().Format(time.RFC3339),
			Footer:      embedFooter{Text: "Server " + n.ServerID},
		}},
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	apiErr := fmt.Errorf("discord webhook returned %s: %s", resp.Status, string(msg))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return fmt.Errorf("%w: %v", notifier.ErrPermissionDenied, apiErr)
	}
	return apiErr
}
