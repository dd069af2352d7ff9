package pushover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noahxzhu/bosswatch/internal/model"
	"github.com/noahxzhu/bosswatch/internal/notifier"
)

const DefaultAPIURL = "https://api.pushover.net/1/messages.json"

type Client struct {
	Token   string
	User    string
	APIURL  string
	httpCli *http.Client
}

func NewClient(token, user string) *Client {
	return &Client{
		Token:   token,
		User:    user,
		APIURL:  DefaultAPIURL,
		httpCli: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Name() string { return "pushover" }

// Notify sends n as a Pushover message. Favorites go out at high priority.
func (c *Client) Notify(ctx context.Context, n model.Notification) error {
	priority := "0"
	if n.Favorite {
		priority = "1"
	}
	return c.SendMessage(ctx, n.Title, n.Body, priority)
}

func (c *Client) SendMessage(ctx context.Context, title, message, priority string) error {
	params := url.Values{}
	params.Set("token", c.Token)
	params.Set("user", c.User)
	params.Set("title", title)
	params.Set("message", message)
	params.Set("priority", priority)
	params.Set("html", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("pushover api error: status %s, body %s", resp.Status, string(body))
		// Rejected credentials.
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
			(resp.StatusCode == http.StatusBadRequest && strings.Contains(string(body), "invalid")) {
			return fmt.Errorf("%w: %v", notifier.ErrPermissionDenied, apiErr)
		}
		return apiErr
	}

	return nil
}
