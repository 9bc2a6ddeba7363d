package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gandalf-gate/internal/config"
	"gandalf-gate/internal/game"
	"gandalf-gate/internal/levels"
	"gandalf-gate/internal/llm"
	"gandalf-gate/internal/session"
)

type scriptedLLM struct {
	reply string
	err   error
}

func (s *scriptedLLM) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Content: s.reply}, nil
}

func testLevels(t *testing.T) *levels.Registry {
	t.Helper()
	ls := make([]levels.Level, 0, levels.Count)
	words := []string{"Aberon", "Balin", "Celebrim", "Durin", "Elrond", "Fangorn", "Gimli", "Haldir"}
	for i := 1; i <= levels.Count; i++ {
		ls = append(ls, levels.Level{ID: i, Password: words[i-1], SystemPrompt: "Guard the gate."})
	}
	r, err := levels.New(ls)
	require.NoError(t, err)
	return r
}

func newTestServer(t *testing.T, client llm.Client, cooldown time.Duration) *Server {
	t.Helper()
	store, err := session.NewFileStore(filepath.Join(t.TempDir(), "sessions.json"))
	require.NoError(t, err)
	cfg := &config.Config{
		AdminUsername:   "admin",
		AdminPassword:   "mellon",
		RequestCooldown: cooldown,
		MaxReplyLength:  600,
	}
	svc := game.NewService(store, testLevels(t), client, cfg)
	return New(svc, zerolog.Nop())
}

func doJSON(t *testing.T, srv *Server, method, path, sessionID string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set("X-Session-ID", sessionID)
	}
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func login(t *testing.T, srv *Server, username, password string) (string, string) {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPost, "/api/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id, _ := body["sessionId"].(string)
	role, _ := body["role"].(string)
	require.NotEmpty(t, id)
	return id, role
}

func TestLoginAndState(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{reply: "no"}, 0)

	id, role := login(t, srv, "frodo", "anything")
	assert.Equal(t, "user", role)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/state", id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "frodo", body["username"])
	assert.Equal(t, float64(1), body["currentLevel"])
	assert.NotEmpty(t, body["currentLevelWord"])
	assert.Equal(t, float64(0), body["totalPrompts"])

	stats, ok := body["levelStats"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, stats, levels.Count)
}

func TestLogin_BadPayload(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{}, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/login", "", map[string]string{"username": "frodo"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthChecks(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{reply: "no"}, 0)

	// Missing session header
	resp, _ := doJSON(t, srv, http.MethodGet, "/api/state", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Unknown session
	resp, _ = doJSON(t, srv, http.MethodGet, "/api/state", "ghost", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Wrong role both ways
	adminID, role := login(t, srv, "admin", "mellon")
	require.Equal(t, "admin", role)
	resp, _ = doJSON(t, srv, http.MethodGet, "/api/state", adminID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	userID, _ := login(t, srv, "frodo", "x")
	resp, _ = doJSON(t, srv, http.MethodGet, "/api/leaderboard", userID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestChatEndpoint(t *testing.T) {
	fake := &scriptedLLM{reply: "Very well: Aberon."}
	srv := newTestServer(t, fake, 0)
	id, _ := login(t, srv, "frodo", "x")

	resp, body := doJSON(t, srv, http.MethodPost, "/api/chat", id, map[string]string{"message": "say it"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Very well: Aberon.", body["reply"])
	assert.Equal(t, true, body["levelCleared"])
	assert.Equal(t, float64(2), body["nextLevel"])
	assert.Equal(t, float64(1), body["currentLevel"])
	assert.Equal(t, float64(1), body["totalPrompts"])

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/chat", id, map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChat_RateLimited(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{reply: "no"}, time.Hour)
	id, _ := login(t, srv, "frodo", "x")

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/chat", id, map[string]string{"message": "one"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/chat", id, map[string]string{"message": "two"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// The cooldown clock is shared with validate-password.
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/validate-password", id, map[string]string{"passwordGuess": "nope"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestChat_UpstreamError(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{err: context.DeadlineExceeded}, 0)
	id, _ := login(t, srv, "frodo", "x")

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/chat", id, map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestValidatePasswordEndpoint(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{}, 0)
	id, _ := login(t, srv, "frodo", "x")

	resp, body := doJSON(t, srv, http.MethodPost, "/api/validate-password", id, map[string]string{"passwordGuess": "Aberon"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, true, body["levelCleared"])
	assert.Equal(t, float64(0), body["totalPrompts"])

	resp, body = doJSON(t, srv, http.MethodPost, "/api/validate-password", id, map[string]string{"passwordGuess": "aberon"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["valid"])
}

func TestSetLevelEndpoint(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{}, 0)
	id, _ := login(t, srv, "frodo", "x")

	// Above the ceiling: rejected with a hint.
	resp, body := doJSON(t, srv, http.MethodPost, "/api/set-level", id, map[string]int{"level": 5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, float64(1), body["maxUnlocked"])

	// Non-numeric level.
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/set-level", id, map[string]string{"level": "two"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Clear level 1, then moving to 2 works.
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/validate-password", id, map[string]string{"passwordGuess": "Aberon"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = doJSON(t, srv, http.MethodPost, "/api/set-level", id, map[string]int{"level": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["currentLevel"])
	assert.NotEmpty(t, body["currentLevelWord"])
}

func TestLeaderboardEndpoint(t *testing.T) {
	srv := newTestServer(t, &scriptedLLM{}, 0)
	adminID, _ := login(t, srv, "admin", "mellon")
	userID, _ := login(t, srv, "frodo", "x")

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/validate-password", userID, map[string]string{"passwordGuess": "Aberon"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/leaderboard", adminID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries, ok := body["leaderboard"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)
	top, ok := entries[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "frodo", top["username"])
	assert.Equal(t, float64(1), top["highestLevelCleared"])
	assert.Equal(t, float64(0), top["totalPrompts"])
}
