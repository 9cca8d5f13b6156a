package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func calm() Conditions {
	return Conditions{TemperatureC: 20, WindSpeedMS: 3, PrecipChance: 0.1, RainMM: 0}
}

func TestIsExtremeMonotonicInWind(t *testing.T) {
	th := DefaultThresholds()
	c := calm()

	flipped := false
	for wind := 0.0; wind <= 20; wind += 0.25 {
		c.WindSpeedMS = wind
		got := th.IsExtreme(c)
		if flipped {
			assert.True(t, got, "wind %.2f went back to non-extreme", wind)
		}
		if got {
			flipped = true
		}
		assert.Equal(t, wind >= th.WindSpeedMS, got, "wind %.2f", wind)
	}
	assert.True(t, flipped)
}

func TestIsExtremeEachThreshold(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name   string
		mutate func(*Conditions)
		want   bool
	}{
		{"calm", func(*Conditions) {}, false},
		{"heat at cutoff", func(c *Conditions) { c.TemperatureC = 35 }, true},
		{"just below heat", func(c *Conditions) { c.TemperatureC = 34.9 }, false},
		{"freezing", func(c *Conditions) { c.TemperatureC = 0 }, true},
		{"wind", func(c *Conditions) { c.WindSpeedMS = 9 }, true},
		{"precipitation chance", func(c *Conditions) { c.PrecipChance = 0.85 }, true},
		{"heavy rain", func(c *Conditions) { c.RainMM = 1.6 }, true},
		{"light rain", func(c *Conditions) { c.RainMM = 0.4 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := calm()
			tt.mutate(&c)
			assert.Equal(t, tt.want, th.IsExtreme(c))
			assert.Equal(t, tt.want, len(th.Reasons(c)) > 0)
		})
	}
}

func TestReasonsOrder(t *testing.T) {
	th := DefaultThresholds()
	reasons := th.Reasons(Conditions{TemperatureC: 36, WindSpeedMS: 10, PrecipChance: 0.9, RainMM: 2})
	assert.Equal(t, []string{
		"extreme heat (36.0°C)",
		"strong wind (10.0 m/s)",
		"high chance of precipitation (90%)",
		"heavy rain (2.0 mm)",
	}, reasons)
}
