// Package backend sends composed prompts to a hosted chat-completion API.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"WeatherChat/internal/config"
)

var (
	ErrNetwork            = errors.New("chat provider unreachable")
	ErrAuthentication     = errors.New("chat provider rejected credentials")
	ErrRateLimit          = errors.New("chat provider rate limit exceeded")
	ErrEmptyResponse      = errors.New("chat provider returned no reply")
	ErrUnexpectedResponse = errors.New("unexpected chat provider response")
)

// Backend completes a single prompt. Implementations make exactly one
// request per call and never retry.
type Backend interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the backend selected by cfg.Backend.
func New(cfg config.Config, httpClient *http.Client) (Backend, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	switch cfg.Backend {
	case config.BackendOpenAI, "":
		return NewOpenAI(httpClient, cfg.ChatAPIKey, cfg.ChatBaseURL, cfg.Model), nil
	case config.BackendGrok:
		return NewGrok(httpClient, cfg.ChatAPIKey, cfg.ChatBaseURL, cfg.Model), nil
	case config.BackendAnthropic:
		return NewAnthropic(httpClient, cfg.ChatAPIKey, cfg.ChatBaseURL, cfg.Model), nil
	default:
		return nil, &config.Error{Variable: "CHAT_BACKEND", Reason: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}
}

// statusError maps a non-2xx HTTP status onto the error taxonomy.
func statusError(provider string, status int, detail string) error {
	var kind error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = ErrAuthentication
	case status == http.StatusTooManyRequests:
		kind = ErrRateLimit
	case status >= 500:
		kind = ErrNetwork
	default:
		kind = ErrUnexpectedResponse
	}
	if detail == "" {
		return fmt.Errorf("%s: %w (status %d)", provider, kind, status)
	}
	return fmt.Errorf("%s: %w (status %d): %s", provider, kind, status, detail)
}
