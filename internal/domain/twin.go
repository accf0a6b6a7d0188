package domain

import "time"

// CropTwin is the aggregate root: one farmer's one planting together
// with its sensor series, weather snapshot, community signals and
// derived analytics. Twins are exclusively owned by the engine
// registry; HealthScore, Risk and Recommendations are derived state,
// fully overwritten on each recomputation pass.
type CropTwin struct {
	ID               string                 `json:"id"` // {farmerId}_{cropId}_{unixMillis}
	FarmerID         string                 `json:"farmer_id"`
	Profile          FarmerProfile          `json:"profile"`
	Crop             CropData               `json:"crop"`
	SensorHistory    []SensorReading        `json:"sensor_history,omitempty"`
	Weather          WeatherData            `json:"weather"`
	CommunitySignals []CommunitySignal      `json:"community_signals,omitempty"`
	HealthScore      float64                `json:"health_score"` // [0,100]
	Risk             RiskAssessment         `json:"risk"`
	Recommendations  []Recommendation       `json:"recommendations,omitempty"`
	Activities       []Activity             `json:"activities,omitempty"`
	Learning         FederatedLearningModel `json:"learning"`
	CreatedAt        time.Time              `json:"created_at"`
}

// LatestReading returns the newest sensor reading, or false if the
// series is empty.
func (t *CropTwin) LatestReading() (SensorReading, bool) {
	if len(t.SensorHistory) == 0 {
		return SensorReading{}, false
	}
	return t.SensorHistory[len(t.SensorHistory)-1], true
}
