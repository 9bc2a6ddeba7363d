package leakaudit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRateLimited is returned by Chat when the server answers 429.
var ErrRateLimited = fmt.Errorf("rate limited")

// Client is a thin HTTP client for the game API, used only by the auditor.
type Client struct {
	baseURL   string
	http      *http.Client
	sessionID string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Login(username, password string) error {
	var out struct {
		SessionID string `json:"sessionId"`
	}
	err := c.do(http.MethodPost, "/api/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return err
	}
	if out.SessionID == "" {
		return fmt.Errorf("login returned no session id")
	}
	c.sessionID = out.SessionID
	return nil
}

func (c *Client) SetLevel(level int) error {
	return c.do(http.MethodPost, "/api/set-level", map[string]int{"level": level}, nil)
}

type ChatReply struct {
	Reply        string `json:"reply"`
	LevelCleared bool   `json:"levelCleared"`
}

func (c *Client) Chat(message string) (ChatReply, error) {
	var out ChatReply
	err := c.do(http.MethodPost, "/api/chat", map[string]string{"message": message}, &out)
	return out, err
}

// ValidatePassword unlocks the next level server-side. The guess is never
// logged or printed by the auditor.
func (c *Client) ValidatePassword(guess string) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	err := c.do(http.MethodPost, "/api/validate-password", map[string]string{"passwordGuess": guess}, &out)
	if err != nil {
		return false, err
	}
	return out.Valid, nil
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set("X-Session-ID", c.sessionID)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func(b io.ReadCloser) {
		err := b.Close()
		if err != nil {
		}
	}(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
