package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WeatherChat/internal/weather"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		EnvChatAPIKey:    "sk-chat",
		EnvWeatherAPIKey: "ow-weather",
	}
}

func TestFromLookupDefaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, "sk-chat", cfg.ChatAPIKey)
	assert.Equal(t, "ow-weather", cfg.WeatherAPIKey)
	assert.Equal(t, BackendOpenAI, cfg.Backend)
	assert.Equal(t, UIModeWeb, cfg.UIMode)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, 10*time.Minute, cfg.WeatherTTL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, 6, cfg.MaxTurns)
	assert.Equal(t, weather.DefaultThresholds(), cfg.Thresholds)
	assert.Empty(t, cfg.DefaultLocation)
	assert.False(t, cfg.Debug)
}

func TestFromLookupOverrides(t *testing.T) {
	env := baseEnv()
	env["CHAT_BACKEND"] = "Anthropic"
	env["WEATHER_LOCATION"] = " Lyon,FR "
	env["WEATHER_TTL"] = "90s"
	env["HTTP_TIMEOUT"] = "3s"
	env["PROMPT_MAX_TURNS"] = "2"
	env["EXTREME_WIND_MS"] = "12.5"
	env["UI_MODE"] = "terminal"
	env["DEBUG"] = "true"

	cfg, err := FromLookup(lookupFrom(env))
	require.NoError(t, err)

	assert.Equal(t, BackendAnthropic, cfg.Backend)
	assert.Equal(t, "Lyon,FR", cfg.DefaultLocation)
	assert.Equal(t, 90*time.Second, cfg.WeatherTTL)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 2, cfg.MaxTurns)
	assert.Equal(t, 12.5, cfg.Thresholds.WindSpeedMS)
	assert.Equal(t, UIModeTerminal, cfg.UIMode)
	assert.True(t, cfg.Debug)
}

func TestFromLookupMissingSecrets(t *testing.T) {
	tests := []struct {
		name    string
		drop    string
		blank   bool
		wantVar string
	}{
		{"chat key unset", EnvChatAPIKey, false, EnvChatAPIKey},
		{"chat key blank", EnvChatAPIKey, true, EnvChatAPIKey},
		{"weather key unset", EnvWeatherAPIKey, false, EnvWeatherAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			if tt.blank {
				env[tt.drop] = "   "
			} else {
				delete(env, tt.drop)
			}

			_, err := FromLookup(lookupFrom(env))
			var cfgErr *Error
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.wantVar, cfgErr.Variable)
			assert.Contains(t, err.Error(), tt.wantVar)
		})
	}
}

func TestFromLookupBothSecretsMissingNamesChatKeyFirst(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{}))
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, EnvChatAPIKey, cfgErr.Variable)
}

func TestFromLookupMalformedValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"WEATHER_TTL", "ten minutes"},
		{"HTTP_TIMEOUT", "fast"},
		{"PROMPT_MAX_TURNS", "six"},
		{"EXTREME_HIGH_TEMP_C", "hot"},
		{"DEBUG", "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			env := baseEnv()
			env[tt.key] = tt.value

			_, err := FromLookup(lookupFrom(env))
			var cfgErr *Error
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.key, cfgErr.Variable)
		})
	}
}

func TestFromLookupValidation(t *testing.T) {
	tests := map[string]string{
		"CHAT_BACKEND":     "ollama",
		"UI_MODE":          "desktop",
		"PORT":             "http",
		"HTTP_TIMEOUT":     "0s",
		"PROMPT_MAX_TURNS": "0",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			env := baseEnv()
			env[key] = value

			_, err := FromLookup(lookupFrom(env))
			var cfgErr *Error
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, "configuration", cfgErr.Variable)
		})
	}
}
