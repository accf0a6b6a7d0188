package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/krishisakhi/backend/internal/domain"
)

// WeatherProvider returns a weather snapshot for field coordinates.
// The engine treats provider failures as non-fatal: the twin keeps its
// previous snapshot.
type WeatherProvider interface {
	Fetch(ctx context.Context, loc domain.Location) (domain.WeatherData, error)
}

// WeatherService handles weather data fetching. Without an API key it
// serves simulated Kerala-seasonal data; with one it calls
// OpenWeatherMap and falls back to the simulation on any failure.
type WeatherService struct {
	apiKey     string
	httpClient *http.Client
}

// NewWeatherService creates a new weather service
func NewWeatherService(apiKey string) *WeatherService {
	return &WeatherService{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// OpenWeatherResponse represents the OpenWeatherMap API response
type OpenWeatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
}

// Fetch returns current weather for the given coordinates
func (s *WeatherService) Fetch(ctx context.Context, loc domain.Location) (domain.WeatherData, error) {
	// Return mock data if no API key
	if s.apiKey == "" {
		return s.getMockWeather(loc), nil
	}

	url := fmt.Sprintf(
		"https://api.openweathermap.org/data/2.5/weather?lat=%f&lon=%f&appid=%s&units=metric",
		loc.Latitude, loc.Longitude, s.apiKey,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.WeatherData{}, fmt.Errorf("weather: failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// Fallback to mock on network error
		return s.getMockWeather(loc), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.getMockWeather(loc), nil
	}

	var owResp OpenWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return domain.WeatherData{}, fmt.Errorf("weather: failed to decode response: %w", err)
	}

	current := domain.CurrentWeather{
		Temperature: owResp.Main.Temp,
		Humidity:    owResp.Main.Humidity,
		WindSpeed:   owResp.Wind.Speed,
		Rainfall:    owResp.Rain.OneHour,
		IsMock:      false,
	}
	if len(owResp.Weather) > 0 {
		current.Description = owResp.Weather[0].Description
	}

	// Forecast and alert feeds need separate paid endpoints; reuse the
	// seasonal simulation for those sections.
	mock := s.getMockWeather(loc)
	return domain.WeatherData{
		Current:   current,
		Forecast:  mock.Forecast,
		Alerts:    s.seasonalAlerts(time.Now()),
		FetchedAt: time.Now(),
	}, nil
}

// getMockWeather returns simulated Kerala weather for the season
func (s *WeatherService) getMockWeather(loc domain.Location) domain.WeatherData {
	now := time.Now()
	month := now.Month()

	var temp, humidity, rainfall float64
	var description string

	switch {
	case month >= time.June && month <= time.September: // Southwest monsoon
		temp = 26.0
		humidity = 90.0
		rainfall = 35.0
		description = "Heavy monsoon rain"
	case month >= time.March && month <= time.May: // Pre-monsoon heat
		temp = 34.0
		humidity = 65.0
		rainfall = 2.0
		description = "Hot and humid"
	case month >= time.October && month <= time.November: // Northeast monsoon
		temp = 28.0
		humidity = 80.0
		rainfall = 15.0
		description = "Evening thundershowers"
	default: // Winter
		temp = 29.0
		humidity = 70.0
		rainfall = 1.0
		description = "Mostly clear"
	}

	forecast := make([]domain.ForecastDay, 0, 5)
	for i := 1; i <= 5; i++ {
		jitter := (rand.Float64() - 0.5) * 2
		forecast = append(forecast, domain.ForecastDay{
			Date:        now.AddDate(0, 0, i),
			TempMax:     temp + 2 + jitter,
			TempMin:     temp - 4 + jitter,
			RainfallMM:  rainfall * (0.6 + rand.Float64()*0.8),
			Humidity:    humidity,
			Description: description,
		})
	}

	return domain.WeatherData{
		Current: domain.CurrentWeather{
			Temperature: temp,
			Humidity:    humidity,
			WindSpeed:   3.5,
			Rainfall:    rainfall,
			Description: description,
			IsMock:      true,
		},
		Forecast:  forecast,
		Alerts:    s.seasonalAlerts(now),
		FetchedAt: now,
	}
}

// seasonalAlerts emits the warnings typical for the Kerala calendar
func (s *WeatherService) seasonalAlerts(now time.Time) []domain.WeatherAlert {
	month := now.Month()
	switch {
	case month >= time.June && month <= time.September:
		return []domain.WeatherAlert{
			{
				Type:     domain.WeatherHeavyRain,
				Severity: domain.WeatherSeverityWarning,
				Message: domain.LocalizedText{
					EN: "Heavy rainfall expected over the next 48 hours.",
					ML: "അടുത്ത 48 മണിക്കൂറിനുള്ളിൽ കനത്ത മഴയ്ക്ക് സാധ്യത.",
				},
				ValidFrom:  now,
				ValidUntil: now.Add(48 * time.Hour),
			},
		}
	case month == time.April || month == time.May:
		return []domain.WeatherAlert{
			{
				Type:     domain.WeatherHeatWave,
				Severity: domain.WeatherSeverityWatch,
				Message: domain.LocalizedText{
					EN: "High daytime temperatures; irrigate in the early morning.",
					ML: "പകൽ ഉയർന്ന താപനില; അതിരാവിലെ ജലസേചനം നടത്തുക.",
				},
				ValidFrom:  now,
				ValidUntil: now.Add(72 * time.Hour),
			},
		}
	}
	return nil
}
