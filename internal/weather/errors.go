package weather

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork            = errors.New("weather provider unreachable")
	ErrInvalidLocation    = errors.New("unknown location")
	ErrRateLimit          = errors.New("weather provider rate limit exceeded")
	ErrAuthentication     = errors.New("weather provider rejected api key")
	ErrUnexpectedResponse = errors.New("unexpected weather provider response")
)

// Error describes a failed provider call.
type Error struct {
	Op       string // "weather", "forecast"
	Location string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("weather %s %q: %v", e.Op, e.Location, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
