package weather

import (
	"fmt"
	"strings"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Snapshot is a point-in-time weather reading for one location. It is
// recomputed on every fetch and never updated in place.
type Snapshot struct {
	Location     string    `json:"location"`
	Temperature  float64   `json:"temperatureC"`
	FeelsLike    float64   `json:"feelsLikeC"`
	Humidity     float64   `json:"humidityPercent"`
	WindSpeed    float64   `json:"windSpeedMs"`
	PrecipChance float64   `json:"precipChance"`
	RainMM       float64   `json:"rainMm"` // per 3h
	Condition    Condition `json:"condition"`
	Summary      string    `json:"summary"`

	// Forecast holds one entry per calendar day, in ascending date order.
	// It is empty when the forecast request failed.
	Forecast    []ForecastDay `json:"forecast,omitempty"`
	ExtremeDays []string      `json:"extremeDays,omitempty"`

	// Warnings lists the thresholds crossed by the current conditions.
	Warnings  []string  `json:"warnings,omitempty"`
	IsExtreme bool      `json:"isExtreme"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// ForecastDay is the first forecast entry seen for a calendar day.
type ForecastDay struct {
	Date         string    `json:"date"` // YYYY-MM-DD
	Time         string    `json:"time"`
	Temperature  float64   `json:"temperatureC"`
	WindSpeed    float64   `json:"windSpeedMs"`
	PrecipChance float64   `json:"precipChance"`
	RainMM       float64   `json:"rainMm"`
	Condition    Condition `json:"condition"`
	IsExtreme    bool      `json:"isExtreme"`
}

// Conditions returns the fields used for extreme-weather classification.
func (s Snapshot) Conditions() Conditions {
	return Conditions{
		TemperatureC: s.Temperature,
		WindSpeedMS:  s.WindSpeed,
		PrecipChance: s.PrecipChance,
		RainMM:       s.RainMM,
	}
}

// Describe renders the snapshot as a single human-readable line.
func (s Snapshot) Describe() string {
	var b strings.Builder
	b.WriteString(s.Location)
	b.WriteString(": ")
	if s.Summary != "" {
		b.WriteString(s.Summary)
	} else {
		b.WriteString(string(s.Condition))
	}
	fmt.Fprintf(&b, ", %.1f°C", s.Temperature)
	if s.FeelsLike != 0 && s.FeelsLike != s.Temperature {
		fmt.Fprintf(&b, " (feels like %.1f°C)", s.FeelsLike)
	}
	fmt.Fprintf(&b, ", wind %.1f m/s", s.WindSpeed)
	if s.Humidity > 0 {
		fmt.Fprintf(&b, ", humidity %.0f%%", s.Humidity)
	}
	fmt.Fprintf(&b, ", %.0f%% chance of precipitation", s.PrecipChance*100)
	return b.String()
}

// Stale reports whether the snapshot is older than ttl. A zero ttl means
// snapshots never go stale within a session.
func (s Snapshot) Stale(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.FetchedAt) >= ttl
}
