package weather

import "fmt"

// Default extreme-weather cutoffs. Wind follows the 20 mph strong-wind
// cutoff, rain is heavy rain over a 3h forecast window.
const (
	DefaultHighTemperatureC = 35.0
	DefaultLowTemperatureC  = 0.0
	DefaultWindSpeedMS      = 9.0
	DefaultPrecipChance     = 0.8
	DefaultRainMM           = 1.6
)

// Thresholds are the cutoffs at or beyond which weather counts as extreme.
type Thresholds struct {
	HighTemperatureC float64
	LowTemperatureC  float64 `validate:"ltfield=HighTemperatureC"`
	WindSpeedMS      float64 `validate:"gt=0"`
	PrecipChance     float64 `validate:"gt=0,lte=1"`
	RainMM           float64 `validate:"gt=0"` // per 3h; hourly readings are scaled
}

// DefaultThresholds returns the built-in cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighTemperatureC: DefaultHighTemperatureC,
		LowTemperatureC:  DefaultLowTemperatureC,
		WindSpeedMS:      DefaultWindSpeedMS,
		PrecipChance:     DefaultPrecipChance,
		RainMM:           DefaultRainMM,
	}
}

// Conditions are the parsed fields extreme classification looks at.
type Conditions struct {
	TemperatureC float64
	WindSpeedMS  float64
	PrecipChance float64 // 0..1
	RainMM       float64
}

// Reasons lists every threshold crossed by c, in a fixed order.
func (t Thresholds) Reasons(c Conditions) []string {
	var reasons []string
	if c.TemperatureC >= t.HighTemperatureC {
		reasons = append(reasons, fmt.Sprintf("extreme heat (%.1f°C)", c.TemperatureC))
	}
	if c.TemperatureC <= t.LowTemperatureC {
		reasons = append(reasons, fmt.Sprintf("freezing temperature (%.1f°C)", c.TemperatureC))
	}
	if c.WindSpeedMS >= t.WindSpeedMS {
		reasons = append(reasons, fmt.Sprintf("strong wind (%.1f m/s)", c.WindSpeedMS))
	}
	if c.PrecipChance >= t.PrecipChance {
		reasons = append(reasons, fmt.Sprintf("high chance of precipitation (%.0f%%)", c.PrecipChance*100))
	}
	if c.RainMM >= t.RainMM {
		reasons = append(reasons, fmt.Sprintf("heavy rain (%.1f mm)", c.RainMM))
	}
	return reasons
}

// IsExtreme reports whether any threshold is crossed.
func (t Thresholds) IsExtreme(c Conditions) bool {
	return c.TemperatureC >= t.HighTemperatureC ||
		c.TemperatureC <= t.LowTemperatureC ||
		c.WindSpeedMS >= t.WindSpeedMS ||
		c.PrecipChance >= t.PrecipChance ||
		c.RainMM >= t.RainMM
}
