package builtin

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"persona/internal/capability"
	"persona/internal/logging"
)

// Weather looks up current conditions via the Open-Meteo APIs: first a
// geocoding call resolves the location name, then a forecast call
// fetches the current weather at those coordinates. No API key needed.
type Weather struct {
	capability.Base
	geocodeURL  string
	forecastURL string
	client      *http.Client
}

func NewWeather() *Weather {
	return &Weather{
		Base: capability.NewBase(
			"get_weather",
			"Returns current weather for a location. Args: location (string), e.g. 'Istanbul' or 'Paris'.",
		),
		geocodeURL:  "https://geocoding-api.open-meteo.com/v1/search",
		forecastURL: "https://api.open-meteo.com/v1/forecast",
		client:      httpClient,
	}
}

// weatherCodeDescriptions maps WMO weather interpretation codes to
// human-readable conditions.
var weatherCodeDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snowfall",
	73: "Moderate snowfall",
	75: "Heavy snowfall",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

func (w *Weather) Execute(args map[string]any) capability.Result {
	if errRes := capability.RequireArgs(args, "location"); errRes != nil {
		return errRes
	}
	location, ok := args["location"].(string)
	if !ok || location == "" {
		return capability.Errorf("argument 'location' must be a non-empty string")
	}

	lat, lon, resolved, err := w.geocode(location)
	if err != nil {
		return capability.Errorf("cannot resolve location '%s': %v", location, err)
	}

	current, err := w.currentWeather(lat, lon)
	if err != nil {
		return capability.Errorf("weather lookup failed for '%s': %v", location, err)
	}

	condition := weatherCodeDescriptions[current.WeatherCode]
	if condition == "" {
		condition = fmt.Sprintf("Unknown (code %d)", current.WeatherCode)
	}

	logging.CapabilityDebug("weather: %s -> %.1f°C, %s", resolved, current.Temperature, condition)
	return capability.Result{
		"location":    resolved,
		"temperature": fmt.Sprintf("%.1f°C", current.Temperature),
		"condition":   condition,
		"humidity":    fmt.Sprintf("%d%%", current.Humidity),
		"wind":        fmt.Sprintf("%.1f km/h", current.WindSpeed),
		"coordinates": fmt.Sprintf("%.4f, %.4f", lat, lon),
		"status":      "success",
	}
}

func (w *Weather) geocode(location string) (lat, lon float64, resolved string, err error) {
	q := url.Values{}
	q.Set("name", location)
	q.Set("count", "1")
	body, err := w.getJSON(w.geocodeURL + "?" + q.Encode())
	if err != nil {
		return 0, 0, "", err
	}

	var payload struct {
		Results []struct {
			Name      string  `json:"name"`
			Country   string  `json:"country"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, 0, "", fmt.Errorf("bad geocoding response: %w", err)
	}
	if len(payload.Results) == 0 {
		return 0, 0, "", fmt.Errorf("no match")
	}

	r := payload.Results[0]
	resolved = r.Name
	if r.Country != "" {
		resolved = r.Name + ", " + r.Country
	}
	return r.Latitude, r.Longitude, resolved, nil
}

type currentConditions struct {
	Temperature float64
	Humidity    int
	WeatherCode int
	WindSpeed   float64
}

func (w *Weather) currentWeather(lat, lon float64) (*currentConditions, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("current", "temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m")
	body, err := w.getJSON(w.forecastURL + "?" + q.Encode())
	if err != nil {
		return nil, err
	}

	var payload struct {
		Current struct {
			Temperature float64 `json:"temperature_2m"`
			Humidity    int     `json:"relative_humidity_2m"`
			WeatherCode int     `json:"weather_code"`
			WindSpeed   float64 `json:"wind_speed_10m"`
		} `json:"current"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("bad forecast response: %w", err)
	}
	return &currentConditions{
		Temperature: payload.Current.Temperature,
		Humidity:    payload.Current.Humidity,
		WeatherCode: payload.Current.WeatherCode,
		WindSpeed:   payload.Current.WindSpeed,
	}, nil
}

func (w *Weather) getJSON(u string) ([]byte, error) {
	resp, err := w.client.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
