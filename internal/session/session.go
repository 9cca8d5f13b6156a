package session

import (
	"slices"
	"sync"
	"time"

	"WeatherChat/internal/weather"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single chat message
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents a chat session. Messages are only ever appended; the
// transcript returned by History is a copy.
type Session struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	Backend   string    `json:"backend"`

	mu       sync.Mutex
	turn     sync.Mutex
	location string
	crop     string
	messages []Message
	weather  *weather.Snapshot
	lastSeen time.Time
}

// New creates an empty session.
func New(id, backend, location string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		StartTime: now,
		Backend:   backend,
		location:  location,
		lastSeen:  now,
	}
}

// Append adds a message to the end of the transcript.
func (s *Session) Append(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// History returns the transcript in insertion order.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the transcript.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// SetWeather replaces the cached weather snapshot. A nil snapshot clears it.
func (s *Session) SetWeather(snap *weather.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap == nil {
		s.weather = nil
		return
	}
	s.weather = cloneSnapshot(snap)
}

// Weather returns the last snapshot, or nil when none is cached.
func (s *Session) Weather() *weather.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.weather == nil {
		return nil
	}
	return cloneSnapshot(s.weather)
}

func cloneSnapshot(snap *weather.Snapshot) *weather.Snapshot {
	cp := *snap
	cp.Forecast = slices.Clone(snap.Forecast)
	cp.ExtremeDays = slices.Clone(snap.ExtremeDays)
	cp.Warnings = slices.Clone(snap.Warnings)
	return &cp
}

// SetLocation changes the weather location. The cached snapshot is dropped
// when the location actually changes.
func (s *Session) SetLocation(location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if location != s.location {
		s.weather = nil
	}
	s.location = location
}

func (s *Session) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

func (s *Session) SetCrop(crop string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crop = crop
}

func (s *Session) Crop() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crop
}

// LockTurn serializes turns on one session. The returned func releases it.
func (s *Session) LockTurn() func() {
	s.turn.Lock()
	return s.turn.Unlock
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
