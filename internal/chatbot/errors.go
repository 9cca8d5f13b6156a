package chatbot

import (
	"context"
	"errors"

	"WeatherChat/internal/backend"
	"WeatherChat/internal/weather"
)

// ErrorKind classifies a turn error for metrics and HTTP status mapping.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, backend.ErrAuthentication), errors.Is(err, weather.ErrAuthentication):
		return "authentication"
	case errors.Is(err, backend.ErrRateLimit), errors.Is(err, weather.ErrRateLimit):
		return "rate_limit"
	case errors.Is(err, weather.ErrInvalidLocation):
		return "invalid_location"
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, backend.ErrNetwork), errors.Is(err, weather.ErrNetwork):
		return "network"
	case errors.Is(err, backend.ErrEmptyResponse):
		return "empty_response"
	default:
		return "unexpected"
	}
}

// UserMessage is the inline text shown for a failed turn or weather lookup.
func UserMessage(err error) string {
	switch ErrorKind(err) {
	case "":
		return ""
	case "empty_input":
		return "Please type a message first."
	case "authentication":
		return "The service rejected our API key. Check the configured credentials."
	case "rate_limit":
		return "Too many requests right now. Please wait a moment and try again."
	case "invalid_location":
		return "That location was not recognised, so weather is unavailable."
	case "network":
		return "The service could not be reached. Please try again."
	case "empty_response":
		return "The assistant returned an empty reply. Please try again."
	default:
		return "Something went wrong handling that message. Please try again."
	}
}
