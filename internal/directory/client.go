// Package directory talks to the game backend's user directory.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"duelbot/internal/kit"
	"duelbot/pkg/logx"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	base string
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// flexID tolerates backends that store telegram ids as JSON numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("telegramId is neither string nor number: %s", b)
	}
	*f = flexID(n.String())
	return nil
}

// List fetches the current recipient set from GET /users.
//
// It fails soft: any transport, status, or decode problem is logged as
// a warning and yields an empty slice. Callers treat that as "nothing
// to notify".
func (c *Client) List(ctx context.Context) []kit.Recipient {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/users", nil)
	if err != nil {
		c.log.Warn("directory request build failed", logx.Err(err))
		return nil
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("directory fetch failed", logx.Err(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("directory fetch returned non-200", logx.Int("status", resp.StatusCode))
		return nil
	}

	var users []struct {
		TelegramID flexID `json:"telegramId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		c.log.Warn("directory response decode failed", logx.Err(err))
		return nil
	}

	out := make([]kit.Recipient, 0, len(users))
	for _, u := range users {
		if u.TelegramID == "" {
			c.log.Warn("directory entry without telegramId, skipping")
			continue
		}
		out = append(out, kit.Recipient(u.TelegramID))
	}
	return out
}

// Check reports whether the recipient is already registered
// (POST /auth/check).
func (c *Client) Check(ctx context.Context, r kit.Recipient) (bool, error) {
	resp, err := c.postJSON(ctx, "/auth/check", map[string]string{"telegramId": string(r)})
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("auth check: status %d", resp.StatusCode)
	}
	// The backend returns the user object, or an empty body/null for
	// unknown ids.
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, err
	}
	trimmed := strings.TrimSpace(string(b))
	return trimmed != "" && trimmed != "null" && trimmed != "{}", nil
}

// Register creates a directory entry for a new player
// (POST /auth/register).
func (c *Client) Register(ctx context.Context, u kit.User) error {
	resp, err := c.postJSON(ctx, "/auth/register", u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("register: status %d", resp.StatusCode)
	}
	return nil
}

// Delete removes the recipient's account (DELETE /auth/delete).
func (c *Client) Delete(ctx context.Context, r kit.Recipient) error {
	body, err := json.Marshal(map[string]string{"telegramId": string(r)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.base+"/auth/delete", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("delete: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}
