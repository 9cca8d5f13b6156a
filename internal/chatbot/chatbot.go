package chatbot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"WeatherChat/internal/backend"
	"WeatherChat/internal/prompt"
	"WeatherChat/internal/session"
	"WeatherChat/internal/telemetry"
	"WeatherChat/internal/weather"
)

// ErrEmptyInput is returned for blank user input; nothing is sent.
var ErrEmptyInput = errors.New("message is empty")

// WeatherFetcher is satisfied by *weather.Client.
type WeatherFetcher interface {
	Fetch(ctx context.Context, location string) (weather.Snapshot, error)
}

// Options configure a Bot
type Options struct {
	Backend    backend.Backend
	Weather    WeatherFetcher
	Composer   prompt.Composer
	WeatherTTL time.Duration
	Logger     *slog.Logger
	Telemetry  *telemetry.Telemetry
}

// Bot runs turns against a session. It keeps no per-session state itself.
type Bot struct {
	backend    backend.Backend
	weather    WeatherFetcher
	composer   prompt.Composer
	weatherTTL time.Duration
	logger     *slog.Logger
	tel        *telemetry.Telemetry
	now        func() time.Time
}

// TurnResult is what one turn produced. Weather is the snapshot used in
// the prompt, nil when unavailable; WeatherErr explains why.
type TurnResult struct {
	Reply      string
	Weather    *weather.Snapshot
	WeatherErr error
}

// New creates a Bot
func New(opts Options) *Bot {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.Noop()
	}
	return &Bot{
		backend:    opts.Backend,
		weather:    opts.Weather,
		composer:   opts.Composer,
		weatherTTL: opts.WeatherTTL,
		logger:     logger,
		tel:        tel,
		now:        time.Now,
	}
}

// BackendName returns the name of the chat backend in use.
func (b *Bot) BackendName() string {
	return b.backend.Name()
}

// Turn handles one user message. The user message and the reply are
// appended together only when the chat call succeeds, so a failed turn
// leaves the transcript untouched. Weather failures never fail the turn.
func (b *Bot) Turn(ctx context.Context, sess *session.Session, input string) (TurnResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return TurnResult{}, ErrEmptyInput
	}

	unlock := sess.LockTurn()
	defer unlock()

	ctx, span := b.tel.Tracer.Start(ctx, "chat_turn", trace.WithAttributes(
		attribute.String("session.id", sess.ID),
		attribute.String("backend", b.backend.Name()),
	))
	defer span.End()

	snap, werr := b.refreshWeather(ctx, sess)
	result := TurnResult{Weather: snap, WeatherErr: werr}

	pending := session.Message{Role: session.RoleUser, Content: input, Timestamp: b.now()}
	history := append(sess.History(), pending)
	text := b.composer.Compose(history, snap, sess.Crop())

	reply, err := b.complete(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.tel.TurnErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", ErrorKind(err))))
		b.logger.Error("chat turn failed", "session_id", sess.ID, "backend", b.backend.Name(), "error", err)
		return result, err
	}

	sess.Append(pending)
	sess.Append(session.Message{Role: session.RoleAssistant, Content: reply, Timestamp: b.now()})
	b.tel.Turns.Add(ctx, 1)

	b.logger.Info("chat turn completed",
		"session_id", sess.ID,
		"prompt", prompt.Fingerprint(text),
		"history_len", sess.Len(),
		"weather", snap != nil,
	)

	result.Reply = reply
	return result, nil
}

// Weather returns the session's snapshot, refreshing it if due.
func (b *Bot) Weather(ctx context.Context, sess *session.Session) (*weather.Snapshot, error) {
	unlock := sess.LockTurn()
	defer unlock()
	return b.refreshWeather(ctx, sess)
}

// SetLocation changes the session's weather location between turns.
func (b *Bot) SetLocation(sess *session.Session, location string) {
	unlock := sess.LockTurn()
	defer unlock()
	sess.SetLocation(strings.TrimSpace(location))
	b.logger.Info("location changed", "session_id", sess.ID, "location", sess.Location())
}

// SetCrop changes the crop the advice is about.
func (b *Bot) SetCrop(sess *session.Session, crop string) {
	unlock := sess.LockTurn()
	defer unlock()
	sess.SetCrop(strings.TrimSpace(crop))
}

// refreshWeather must be called with the session turn lock held. A cached
// snapshot younger than the TTL is reused; on a failed refresh the stale
// snapshot for the same location is kept unless the location is unknown.
func (b *Bot) refreshWeather(ctx context.Context, sess *session.Session) (*weather.Snapshot, error) {
	location := sess.Location()
	if location == "" || b.weather == nil {
		return nil, nil
	}

	cached := sess.Weather()
	if cached != nil && !cached.Stale(b.now(), b.weatherTTL) {
		return cached, nil
	}

	ctx, span := b.tel.Tracer.Start(ctx, "weather_fetch", trace.WithAttributes(
		attribute.String("location", location),
	))
	defer span.End()

	start := time.Now()
	snap, err := b.weather.Fetch(ctx, location)
	b.recordDuration(ctx, "openweather", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Warn("weather unavailable", "session_id", sess.ID, "location", location, "error", err)
		if errors.Is(err, weather.ErrInvalidLocation) {
			sess.SetWeather(nil)
			return nil, err
		}
		return cached, err
	}

	span.SetAttributes(attribute.Bool("weather.extreme", snap.IsExtreme))
	sess.SetWeather(&snap)
	return &snap, nil
}

func (b *Bot) complete(ctx context.Context, text string) (string, error) {
	ctx, span := b.tel.Tracer.Start(ctx, "chat_completion", trace.WithAttributes(
		attribute.String("backend", b.backend.Name()),
		attribute.String("model", b.backend.Model()),
		attribute.Int("prompt.length", len(text)),
	))
	defer span.End()

	start := time.Now()
	reply, err := b.backend.Complete(ctx, text)
	b.recordDuration(ctx, b.backend.Name(), start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return reply, err
}

func (b *Bot) recordDuration(ctx context.Context, target string, start time.Time, err error) {
	b.tel.RequestDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(
			attribute.String("target", target),
			attribute.Bool("error", err != nil),
		),
	)
}
