package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"WeatherChat/internal/weather"
)

const (
	BackendOpenAI    = "openai"
	BackendGrok      = "grok"
	BackendAnthropic = "anthropic"
)

const (
	UIModeWeb      = "web"
	UIModeTerminal = "terminal"
)

// Environment variable names
const (
	EnvChatAPIKey    = "CHAT_API_KEY"
	EnvWeatherAPIKey = "WEATHER_API_KEY"
)

// Config holds application configuration
type Config struct {
	// Secrets
	ChatAPIKey    string `validate:"required"`
	WeatherAPIKey string `validate:"required"`

	// Chat backend
	Backend     string `validate:"oneof=openai grok anthropic"`
	Model       string
	ChatBaseURL string

	// Weather provider
	WeatherBaseURL  string
	DefaultLocation string
	WeatherTTL      time.Duration `validate:"gte=0"`
	Thresholds      weather.Thresholds

	// Shared per-call timeout for both outbound clients
	HTTPTimeout time.Duration `validate:"gt=0"`

	// Number of prior user turns included in each prompt
	MaxTurns int `validate:"gte=1"`

	UIMode             string        `validate:"oneof=web terminal"`
	Port               string        `validate:"required,numeric"`
	SessionIdleTimeout time.Duration `validate:"gte=0"`

	LogDir string `validate:"required"`
	Debug  bool
}

// Error reports a missing or malformed configuration variable.
type Error struct {
	Variable string
	Reason   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Variable, e.Reason)
}

var validate = validator.New()

// Load reads configuration from the environment (and an optional .env file).
// It is meant to be called exactly once at startup.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable lookup.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	env := envReader{lookup: lookup}

	cfg := Config{
		ChatAPIKey:      env.str(EnvChatAPIKey, ""),
		WeatherAPIKey:   env.str(EnvWeatherAPIKey, ""),
		Backend:         strings.ToLower(env.str("CHAT_BACKEND", BackendOpenAI)),
		Model:           env.str("CHAT_MODEL", ""),
		ChatBaseURL:     env.str("CHAT_BASE_URL", ""),
		WeatherBaseURL:  env.str("WEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
		DefaultLocation: env.str("WEATHER_LOCATION", ""),
		UIMode:          strings.ToLower(env.str("UI_MODE", UIModeWeb)),
		Port:            env.str("PORT", "8080"),
		LogDir:          env.str("LOG_DIR", "logs"),
	}

	// Missing secrets are reported by name before anything else.
	for _, req := range []struct{ name, value string }{
		{EnvChatAPIKey, cfg.ChatAPIKey},
		{EnvWeatherAPIKey, cfg.WeatherAPIKey},
	} {
		if req.value == "" {
			return Config{}, &Error{Variable: req.name, Reason: "is required but not set"}
		}
	}

	var err error
	if cfg.WeatherTTL, err = env.duration("WEATHER_TTL", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = env.duration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SessionIdleTimeout, err = env.duration("SESSION_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.MaxTurns, err = env.integer("PROMPT_MAX_TURNS", 6); err != nil {
		return Config{}, err
	}
	if cfg.Debug, err = env.boolean("DEBUG", false); err != nil {
		return Config{}, err
	}

	t := &cfg.Thresholds
	for _, f := range []struct {
		name string
		dst  *float64
		def  float64
	}{
		{"EXTREME_HIGH_TEMP_C", &t.HighTemperatureC, weather.DefaultHighTemperatureC},
		{"EXTREME_LOW_TEMP_C", &t.LowTemperatureC, weather.DefaultLowTemperatureC},
		{"EXTREME_WIND_MS", &t.WindSpeedMS, weather.DefaultWindSpeedMS},
		{"EXTREME_PRECIP_CHANCE", &t.PrecipChance, weather.DefaultPrecipChance},
		{"EXTREME_RAIN_MM", &t.RainMM, weather.DefaultRainMM},
	} {
		if *f.dst, err = env.float(f.name, f.def); err != nil {
			return Config{}, err
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, &Error{Variable: "configuration", Reason: err.Error()}
	}

	return cfg, nil
}

type envReader struct {
	lookup func(string) (string, bool)
}

func (r envReader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r envReader) duration(key string, def time.Duration) (time.Duration, error) {
	raw := r.str(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &Error{Variable: key, Reason: fmt.Sprintf("is not a valid duration: %q", raw)}
	}
	return d, nil
}

func (r envReader) integer(key string, def int) (int, error) {
	raw := r.str(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &Error{Variable: key, Reason: fmt.Sprintf("is not a valid integer: %q", raw)}
	}
	return n, nil
}

func (r envReader) float(key string, def float64) (float64, error) {
	raw := r.str(key, "")
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &Error{Variable: key, Reason: fmt.Sprintf("is not a valid number: %q", raw)}
	}
	return f, nil
}

func (r envReader) boolean(key string, def bool) (bool, error) {
	raw := r.str(key, "")
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &Error{Variable: key, Reason: fmt.Sprintf("is not a valid boolean: %q", raw)}
	}
	return b, nil
}
