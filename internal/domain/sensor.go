package domain

import "time"

// MaxSensorHistory caps the per-twin sensor series. The series is a
// bounded chronological buffer, not a database: the oldest reading is
// evicted when the cap is reached.
const MaxSensorHistory = 100

// SensorReading is one timestamped field measurement
type SensorReading struct {
	Timestamp       time.Time `json:"timestamp"`
	SoilMoisture    float64   `json:"soil_moisture"`    // percent
	SoilTemperature float64   `json:"soil_temperature"` // celsius
	SoilPH          float64   `json:"soil_ph"`
	Temperature     float64   `json:"temperature"` // ambient, celsius
	Humidity        float64   `json:"humidity"`    // percent
	LightIntensity  float64   `json:"light_intensity"`
	Rainfall        float64   `json:"rainfall"` // mm
}
