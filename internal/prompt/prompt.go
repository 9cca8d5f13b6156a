// Package prompt assembles the single text prompt sent to the chat backend.
package prompt

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"WeatherChat/internal/session"
	"WeatherChat/internal/weather"
)

// DefaultSystemInstruction frames the assistant as a crop advisor.
const DefaultSystemInstruction = "You are an agricultural assistant. Give practical, concise " +
	"recommendations to farmers and gardeners. Use the weather information below when it is " +
	"relevant, and never invent weather data that is not provided."

// DefaultMaxTurns bounds the transcript when no limit is configured.
const DefaultMaxTurns = 6

// Composer builds prompts. It holds no state between calls.
type Composer struct {
	SystemInstruction string
	MaxTurns          int
}

// NewComposer returns a Composer with the default system instruction.
func NewComposer(maxTurns int) Composer {
	return Composer{SystemInstruction: DefaultSystemInstruction, MaxTurns: maxTurns}
}

// Compose renders history (ending with the pending user message), the
// optional weather snapshot and crop into one prompt. It is pure: equal
// inputs always give an equal string.
func (c Composer) Compose(history []session.Message, snap *weather.Snapshot, crop string) string {
	var b strings.Builder

	instruction := c.SystemInstruction
	if instruction == "" {
		instruction = DefaultSystemInstruction
	}
	b.WriteString(instruction)
	b.WriteString("\n")

	if crop = strings.TrimSpace(crop); crop != "" {
		fmt.Fprintf(&b, "\nThe user is growing: %s\n", crop)
	}

	if snap != nil {
		writeWeather(&b, *snap)
	}

	window := c.window(history)
	if len(window) > 0 {
		b.WriteString("\nConversation:\n")
		for _, msg := range window {
			fmt.Fprintf(&b, "%s: %s\n", label(msg.Role), indentContent(msg.Content))
		}
		b.WriteString("Assistant:")
	}

	return b.String()
}

// window returns the trailing messages covering at most MaxTurns user turns.
func (c Composer) window(history []session.Message) []session.Message {
	limit := c.MaxTurns
	if limit <= 0 {
		limit = DefaultMaxTurns
	}
	start := 0
	turns := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != session.RoleUser {
			continue
		}
		turns++
		if turns == limit {
			start = i
			break
		}
	}
	return history[start:]
}

func writeWeather(b *strings.Builder, snap weather.Snapshot) {
	fmt.Fprintf(b, "\nCurrent weather for %s\n", snap.Describe())

	if len(snap.Forecast) > 0 {
		b.WriteString("Daily forecast:\n")
		for _, day := range snap.Forecast {
			fmt.Fprintf(b, "- %s: %s, %.1f°C, wind %.1f m/s, %.0f%% chance of precipitation",
				day.Date, day.Condition, day.Temperature, day.WindSpeed, day.PrecipChance*100)
			if day.RainMM > 0 {
				fmt.Fprintf(b, ", %.1f mm rain", day.RainMM)
			}
			b.WriteString("\n")
		}
	}

	if snap.IsExtreme {
		b.WriteString("WEATHER WARNING: ")
		if len(snap.Warnings) > 0 {
			b.WriteString(strings.Join(snap.Warnings, "; "))
		} else {
			b.WriteString("extreme conditions")
		}
		if len(snap.ExtremeDays) > 0 {
			fmt.Fprintf(b, ". Extreme weather expected on: %s", strings.Join(snap.ExtremeDays, ", "))
		}
		b.WriteString(". Warn the user and account for it in your advice.\n")
	}
}

// indentContent keeps multi-line messages inside their own entry: every
// continuation line is indented so it cannot start with a role label.
func indentContent(content string) string {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	return strings.ReplaceAll(content, "\n", "\n  ")
}

func label(role session.Role) string {
	switch role {
	case session.RoleUser:
		return "User"
	case session.RoleAssistant:
		return "Assistant"
	case session.RoleSystem:
		return "System"
	default:
		return string(role)
	}
}

// Fingerprint identifies a prompt in logs and traces without recording it.
func Fingerprint(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("%x", sum[:8])
}
