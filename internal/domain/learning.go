package domain

import "time"

// PrivacyLevel controls whether a twin's data may feed the federated
// aggregator. Only "high" (fully anonymized) updates are queued.
type PrivacyLevel string

const (
	PrivacyHigh   PrivacyLevel = "high"
	PrivacyMedium PrivacyLevel = "medium"
	PrivacyLow    PrivacyLevel = "low"
)

// FederatedLearningModel is the per-twin view of the shared model
type FederatedLearningModel struct {
	ModelVersion       string          `json:"model_version"`
	LastUpdate         time.Time       `json:"last_update"`
	LocalAccuracy      float64         `json:"local_accuracy"`      // [0,1]
	GlobalContribution float64         `json:"global_contribution"` // [0,1]
	PrivacyLevel       PrivacyLevel    `json:"privacy_level"`
	DataPoints         int             `json:"data_points"`
	Suggestions        []LocalizedText `json:"suggestions,omitempty"`
}

// SeasonalPattern summarizes growing conditions for one update
type SeasonalPattern struct {
	AvgSoilMoisture float64 `json:"avg_soil_moisture"`
	AvgTemperature  float64 `json:"avg_temperature"`
	AvgHumidity     float64 `json:"avg_humidity"`
	RainfallMM      float64 `json:"rainfall_mm"`
}

// TreatmentPattern summarizes interventions and their effect
type TreatmentPattern struct {
	FertilizerApplications float64 `json:"fertilizer_applications"`
	PesticideApplications  float64 `json:"pesticide_applications"`
	IrrigationEvents       float64 `json:"irrigation_events"`
	EffectivenessScore     float64 `json:"effectiveness_score"`
}

// RiskPattern summarizes observed risk exposure
type RiskPattern struct {
	PestIncidence    float64 `json:"pest_incidence"`
	DiseaseIncidence float64 `json:"disease_incidence"`
	AvgOverallRisk   float64 `json:"avg_overall_risk"`
}

// LearningUpdate is one anonymized local contribution. Numeric fields
// carry Laplace noise by the time the update is queued; raw twin data
// never leaves the farmer's queue.
type LearningUpdate struct {
	FarmerID  string           `json:"farmer_id"`
	CropType  CropType         `json:"crop_type"`
	Region    string           `json:"region"` // district_taluk
	Seasonal  SeasonalPattern  `json:"seasonal"`
	Treatment TreatmentPattern `json:"treatment"`
	Risk      RiskPattern      `json:"risk"`
	Timestamp time.Time        `json:"timestamp"`
}

// RegionalInsight is one aggregated (cropType, region) group
type RegionalInsight struct {
	Key        string           `json:"key"` // crop_district_taluk
	CropType   CropType         `json:"crop_type"`
	Region     string           `json:"region"`
	SampleSize int              `json:"sample_size"`
	Confidence float64          `json:"confidence"` // [0,1]
	Seasonal   SeasonalPattern  `json:"seasonal"`
	Treatment  TreatmentPattern `json:"treatment"`
	Risk       RiskPattern      `json:"risk"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// GlobalModel is the single versioned aggregate shared by all twins
type GlobalModel struct {
	Version              string                     `json:"version"`
	Accuracy             float64                    `json:"accuracy"` // [0,1]
	ParticipatingFarmers int                        `json:"participating_farmers"`
	LastUpdate           time.Time                  `json:"last_update"`
	Insights             map[string]RegionalInsight `json:"region_specific_insights"`
}

// InsightKey builds the composite lookup key for regional insights
func InsightKey(crop CropType, region string) string {
	return string(crop) + "_" + region
}
