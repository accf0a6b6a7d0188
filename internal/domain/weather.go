package domain

import "time"

// WeatherAlertType classifies active weather warnings
type WeatherAlertType string

const (
	WeatherHeavyRain WeatherAlertType = "heavy_rain"
	WeatherDrought   WeatherAlertType = "drought"
	WeatherCyclone   WeatherAlertType = "cyclone"
	WeatherHeatWave  WeatherAlertType = "heat_wave"
)

// WeatherAlertSeverity escalates watch -> warning -> alert
type WeatherAlertSeverity string

const (
	WeatherSeverityWatch   WeatherAlertSeverity = "watch"
	WeatherSeverityWarning WeatherAlertSeverity = "warning"
	WeatherSeverityAlert   WeatherAlertSeverity = "alert"
)

// WeatherAlert is an active provider warning with a validity window
type WeatherAlert struct {
	Type       WeatherAlertType     `json:"type"`
	Severity   WeatherAlertSeverity `json:"severity"`
	Message    LocalizedText        `json:"message"`
	ValidFrom  time.Time            `json:"valid_from"`
	ValidUntil time.Time            `json:"valid_until"`
}

// CurrentWeather is the present-moment snapshot
type CurrentWeather struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Rainfall    float64 `json:"rainfall"`
	Description string  `json:"description"`
	IsMock      bool    `json:"is_mock"`
}

// ForecastDay is one day of the provider forecast
type ForecastDay struct {
	Date        time.Time `json:"date"`
	TempMax     float64   `json:"temp_max"`
	TempMin     float64   `json:"temp_min"`
	RainfallMM  float64   `json:"rainfall_mm"`
	Humidity    float64   `json:"humidity"`
	Description string    `json:"description"`
}

// WeatherData is the full provider snapshot attached to a twin. It is
// replaced wholesale on every recomputation, never merged.
type WeatherData struct {
	Current   CurrentWeather `json:"current"`
	Forecast  []ForecastDay  `json:"forecast,omitempty"`
	Alerts    []WeatherAlert `json:"alerts,omitempty"`
	FetchedAt time.Time      `json:"fetched_at"`
}
