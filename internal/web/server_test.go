package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WeatherChat/internal/backend"
	"WeatherChat/internal/chatbot"
	"WeatherChat/internal/prompt"
	"WeatherChat/internal/session"
	"WeatherChat/internal/weather"
)

type stubBackend struct {
	err   error
	calls int
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Model() string { return "stub-model" }

func (s *stubBackend) Complete(context.Context, string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("answer %d", s.calls), nil
}

type stubWeather struct {
	err error
}

func (s *stubWeather) Fetch(_ context.Context, location string) (weather.Snapshot, error) {
	if s.err != nil {
		return weather.Snapshot{}, s.err
	}
	return weather.Snapshot{
		Location:    location,
		Temperature: 18,
		Condition:   weather.ConditionCloudy,
		Summary:     "overcast clouds",
		FetchedAt:   time.Now(),
	}, nil
}

type harness struct {
	srv      *Server
	chat     *stubBackend
	weather  *stubWeather
	registry *session.Registry
	cookie   *http.Cookie
}

func newHarness(t *testing.T, location string) *harness {
	t.Helper()
	h := &harness{
		chat:     &stubBackend{},
		weather:  &stubWeather{},
		registry: session.NewRegistry("stub", location, time.Hour),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bot := chatbot.New(chatbot.Options{
		Backend:    h.chat,
		Weather:    h.weather,
		Composer:   prompt.NewComposer(prompt.DefaultMaxTurns),
		WeatherTTL: time.Minute,
		Logger:     logger,
	})
	h.srv = NewServer(bot, h.registry, logger)
	return h
}

// do sends a request, carrying the session cookie across calls.
func (h *harness) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}

	resp, err := h.srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			h.cookie = c
		}
	}

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// doForm posts an application/x-www-form-urlencoded body.
func (h *harness) doForm(t *testing.T, path string, form url.Values) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}

	resp, err := h.srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			h.cookie = c
		}
	}
	return resp.StatusCode
}

func TestFormBodiesAreNotAliased(t *testing.T) {
	h := newHarness(t, "")

	require.Equal(t, http.StatusOK, h.doForm(t, "/api/location", url.Values{"location": {"Lyon,FR"}}))
	require.Equal(t, http.StatusOK, h.doForm(t, "/api/crop", url.Values{"crop": {"sunflowers"}}))
	require.Equal(t, http.StatusOK, h.doForm(t, "/api/chat", url.Values{"message": {"AAAAAAAAAAAAAAAA"}}))
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, h.doForm(t, "/api/chat", url.Values{"message": {"BBBBBBBBBBBBBBBB"}}))
	}

	status, view := h.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Lyon,FR", view["location"])
	assert.Equal(t, "sunflowers", view["crop"])

	messages, ok := view["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 12)
	first, ok := messages[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "AAAAAAAAAAAAAAAA", first["content"])
}

func TestHealth(t *testing.T) {
	h := newHarness(t, "")
	status, body := h.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "weatherchat", body["service"])
}

func TestIndexServed(t *testing.T) {
	h := newHarness(t, "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := h.srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestChatRoundTrip(t *testing.T) {
	h := newHarness(t, "Lyon,FR")

	status, body := h.do(t, http.MethodPost, "/api/chat", `{"message":"Is it a good day to sow?"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "answer 1", body["reply"])
	require.NotNil(t, h.cookie)

	weatherView, ok := body["weather"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Lyon,FR", weatherView["location"])

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)

	status, body = h.do(t, http.MethodPost, "/api/chat", `{"message":"And tomorrow?"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "answer 2", body["reply"])
	assert.Len(t, body["messages"], 4)
	assert.Equal(t, 1, h.registry.Count())
}

func TestChatBackendFailureLeavesHistory(t *testing.T) {
	h := newHarness(t, "")

	status, _ := h.do(t, http.MethodPost, "/api/chat", `{"message":"first"}`)
	require.Equal(t, http.StatusOK, status)

	h.chat.err = fmt.Errorf("stub: %w", backend.ErrAuthentication)
	status, body := h.do(t, http.MethodPost, "/api/chat", `{"message":"second"}`)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, true, body["error"])
	assert.Equal(t, chatbot.UserMessage(backend.ErrAuthentication), body["message"])

	status, body = h.do(t, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["messages"], 2)
}

func TestChatRateLimitStatus(t *testing.T) {
	h := newHarness(t, "")
	h.chat.err = fmt.Errorf("stub: %w", backend.ErrRateLimit)

	status, body := h.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, true, body["error"])
}

func TestChatWeatherFailureIsReported(t *testing.T) {
	h := newHarness(t, "Atlantis")
	h.weather.err = &weather.Error{Op: "current", Location: "Atlantis", Err: weather.ErrInvalidLocation}

	status, body := h.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "answer 1", body["reply"])
	assert.Nil(t, body["weather"])
	assert.Equal(t, chatbot.UserMessage(weather.ErrInvalidLocation), body["weatherError"])
}

func TestChatValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing message", `{}`},
		{"blank message", `{"message":"   "}`},
		{"too long", fmt.Sprintf(`{"message":%q}`, strings.Repeat("a", 4001))},
		{"malformed json", `{"message":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")
			status, body := h.do(t, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, true, body["error"])
			assert.Zero(t, h.chat.calls)
		})
	}
}

func TestLocationAndCrop(t *testing.T) {
	h := newHarness(t, "")

	status, body := h.do(t, http.MethodGet, "/api/weather", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, true, body["error"])

	status, body = h.do(t, http.MethodPost, "/api/location", `{"location":"Nantes,FR"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Nantes,FR", body["location"])

	status, body = h.do(t, http.MethodPost, "/api/crop", `{"crop":"maize"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "maize", body["crop"])

	status, body = h.do(t, http.MethodGet, "/api/weather", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Nantes,FR", body["location"])
	assert.Equal(t, "overcast clouds", body["summary"])

	status, _ = h.do(t, http.MethodPost, "/api/location", `{"location":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSessionResetKeepsSettings(t *testing.T) {
	h := newHarness(t, "")

	_, first := h.do(t, http.MethodGet, "/api/session", "")
	h.do(t, http.MethodPost, "/api/location", `{"location":"Lyon,FR"}`)
	h.do(t, http.MethodPost, "/api/chat", `{"message":"hello"}`)

	status, reset := h.do(t, http.MethodPost, "/api/session/reset", "")
	require.Equal(t, http.StatusOK, status)
	assert.NotEqual(t, first["id"], reset["id"])
	assert.Equal(t, "Lyon,FR", reset["location"])
	assert.Empty(t, reset["messages"])
	assert.Equal(t, 1, h.registry.Count())

	_, current := h.do(t, http.MethodGet, "/api/session", "")
	assert.Equal(t, reset["id"], current["id"])
}

func TestSessionsAreIsolated(t *testing.T) {
	a := newHarness(t, "")
	b := &harness{srv: a.srv, chat: a.chat, weather: a.weather, registry: a.registry}

	a.do(t, http.MethodPost, "/api/chat", `{"message":"from a"}`)
	_, view := b.do(t, http.MethodGet, "/api/session", "")

	assert.Empty(t, view["messages"])
	assert.Equal(t, 2, a.registry.Count())
}
