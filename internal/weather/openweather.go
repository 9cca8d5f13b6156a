package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// 40 three-hour entries cover the five-day forecast.
	forecastEntries = 40

	maxBodyBytes = 1 << 20
)

// Client fetches current conditions and a short forecast from OpenWeatherMap.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
	thresholds Thresholds
	now        func() time.Time
}

// NewClient creates an OpenWeatherMap client. The http.Client carries the
// per-call timeout; an empty baseURL selects the public API.
func NewClient(httpClient *http.Client, apiKey, baseURL string, thresholds Thresholds) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		circuit:    cb,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Fetch returns a snapshot for location. A failed forecast request other
// than an unknown location still yields a snapshot without forecast.
func (c *Client) Fetch(ctx context.Context, location string) (Snapshot, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Snapshot{}, &Error{Op: "weather", Location: location, Err: ErrInvalidLocation}
	}

	var current currentPayload
	if err := c.get(ctx, "weather", location, nil, &current); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Location:    current.displayName(location),
		Temperature: current.Main.Temp,
		FeelsLike:   current.Main.FeelsLike,
		Humidity:    current.Main.Humidity,
		WindSpeed:   current.Wind.Speed,
		RainMM:      current.Rain.amount(),
		Condition:   mapCondition(current.Weather),
		Summary:     describeCondition(current.Weather),
		FetchedAt:   c.now().UTC(),
	}

	var forecast forecastPayload
	extra := url.Values{"cnt": []string{fmt.Sprint(forecastEntries)}}
	if err := c.get(ctx, "forecast", location, extra, &forecast); err != nil {
		if errors.Is(err, ErrInvalidLocation) {
			return Snapshot{}, err
		}
	} else {
		if len(forecast.List) > 0 {
			// Current conditions carry no probability; use the nearest forecast slot.
			snap.PrecipChance = forecast.List[0].Pop
		}
		snap.Forecast = c.dailyForecast(forecast)
		for _, day := range snap.Forecast {
			if day.IsExtreme {
				snap.ExtremeDays = append(snap.ExtremeDays, day.Date)
			}
		}
	}

	snap.Warnings = c.thresholds.Reasons(snap.Conditions())
	snap.IsExtreme = c.thresholds.IsExtreme(snap.Conditions()) || len(snap.ExtremeDays) > 0
	return snap, nil
}

// dailyForecast keeps the first entry per calendar day.
func (c *Client) dailyForecast(payload forecastPayload) []ForecastDay {
	seen := make(map[string]bool)
	var days []ForecastDay
	for _, entry := range payload.List {
		date, clock, ok := strings.Cut(entry.DtTxt, " ")
		if !ok || date == "" {
			date = time.Unix(entry.Dt, 0).UTC().Format("2006-01-02")
			clock = time.Unix(entry.Dt, 0).UTC().Format("15:04:05")
		}
		if seen[date] {
			continue
		}
		seen[date] = true

		day := ForecastDay{
			Date:         date,
			Time:         clock,
			Temperature:  entry.Main.Temp,
			WindSpeed:    entry.Wind.Speed,
			PrecipChance: entry.Pop,
			RainMM:       entry.Rain.amount(),
			Condition:    mapCondition(entry.Weather),
		}
		day.IsExtreme = c.thresholds.IsExtreme(Conditions{
			TemperatureC: day.Temperature,
			WindSpeedMS:  day.WindSpeed,
			PrecipChance: day.PrecipChance,
			RainMM:       day.RainMM,
		})
		days = append(days, day)
	}
	return days
}

type rawResponse struct {
	status int
	body   []byte
}

// get performs one GET through the circuit breaker and decodes the body into out.
// Only transport failures, 429 and 5xx count against the breaker.
func (c *Client) get(ctx context.Context, endpoint, location string, extra url.Values, out any) error {
	wrap := func(err error) error {
		return &Error{Op: endpoint, Location: location, Err: err}
	}

	values := url.Values{}
	values.Set("q", location)
	values.Set("units", "metric")
	values.Set("appid", c.apiKey)
	for k, v := range extra {
		values[k] = v
	}
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, values.Encode())

	result, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, redact(err, c.apiKey))
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: reading body: %v", ErrNetwork, err)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status %d", ErrRateLimit, resp.StatusCode)
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
		}
		return rawResponse{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return wrap(fmt.Errorf("%w: circuit breaker open", ErrNetwork))
		}
		return wrap(err)
	}

	raw, ok := result.(rawResponse)
	if !ok {
		return wrap(fmt.Errorf("%w: unexpected result type from circuit breaker", ErrUnexpectedResponse))
	}

	var envelope struct {
		Cod     json.Number `json:"cod"`
		Message string      `json:"message"`
	}
	_ = json.Unmarshal(raw.body, &envelope)

	switch {
	case raw.status == http.StatusNotFound || envelope.Cod.String() == "404":
		return wrap(ErrInvalidLocation)
	case raw.status == http.StatusUnauthorized || envelope.Cod.String() == "401":
		return wrap(ErrAuthentication)
	case raw.status < 200 || raw.status >= 300:
		return wrap(fmt.Errorf("%w: status %d %s", ErrUnexpectedResponse, raw.status, envelope.Message))
	}

	if err := json.Unmarshal(raw.body, out); err != nil {
		return wrap(fmt.Errorf("%w: %v", ErrUnexpectedResponse, err))
	}
	return nil
}

// redact strips the api key from transport errors, which embed the URL.
func redact(err error, secret string) string {
	if secret == "" {
		return err.Error()
	}
	return strings.ReplaceAll(err.Error(), secret, "REDACTED")
}

type conditionItem struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type rainVolume struct {
	OneH   float64 `json:"1h"`
	ThreeH float64 `json:"3h"`
}

// amount returns rainfall over a 3h window, the unit Thresholds.RainMM is
// expressed in. An hourly-only reading is scaled up to three hours.
func (r rainVolume) amount() float64 {
	if r.ThreeH != 0 {
		return r.ThreeH
	}
	return r.OneH * 3
}

type currentPayload struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain    rainVolume      `json:"rain"`
	Weather []conditionItem `json:"weather"`
}

func (p currentPayload) displayName(query string) string {
	if p.Name == "" {
		return query
	}
	if p.Sys.Country == "" {
		return p.Name
	}
	return p.Name + ", " + p.Sys.Country
}

type forecastPayload struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Pop     float64         `json:"pop"`
		Rain    rainVolume      `json:"rain"`
		Weather []conditionItem `json:"weather"`
		DtTxt   string          `json:"dt_txt"`
	} `json:"list"`
}

func mapCondition(items []conditionItem) Condition {
	if len(items) == 0 {
		return ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return ConditionClear
	case "Clouds":
		return ConditionCloudy
	case "Rain", "Drizzle":
		return ConditionRain
	case "Snow":
		return ConditionSnow
	case "Thunderstorm":
		return ConditionStorm
	case "Mist", "Fog", "Haze":
		return ConditionMist
	default:
		return ConditionUnknown
	}
}

func describeCondition(items []conditionItem) string {
	if len(items) == 0 {
		return ""
	}
	if items[0].Description != "" {
		return items[0].Description
	}
	return strings.ToLower(items[0].Main)
}
