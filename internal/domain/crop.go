package domain

import (
	"strings"
	"time"
)

// CropType is the normalized crop family key used by every lookup
// table (stage schedules, fertilizer intervals, harvest windows).
// Free-text crop names are matched once at construction time via
// NormalizeCropType; rules never substring-match on names.
type CropType string

const (
	CropRice      CropType = "rice"
	CropCoconut   CropType = "coconut"
	CropBanana    CropType = "banana"
	CropPepper    CropType = "pepper"
	CropVegetable CropType = "vegetable"
	CropGeneric   CropType = "generic"
)

// NormalizeCropType maps a free-text crop name to its CropType key.
// Unrecognized names fall back to CropGeneric, which has no
// stage-transition or harvest tables.
func NormalizeCropType(name string) CropType {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "rice"), strings.Contains(n, "paddy"):
		return CropRice
	case strings.Contains(n, "coconut"):
		return CropCoconut
	case strings.Contains(n, "banana"), strings.Contains(n, "plantain"):
		return CropBanana
	case strings.Contains(n, "pepper"):
		return CropPepper
	case strings.Contains(n, "brinjal"), strings.Contains(n, "tomato"),
		strings.Contains(n, "okra"), strings.Contains(n, "vegetable"):
		return CropVegetable
	default:
		return CropGeneric
	}
}

// StageName is the crop growth stage
type StageName string

const (
	StageGermination StageName = "germination"
	StageVegetative  StageName = "vegetative"
	StageFlowering   StageName = "flowering"
	StageFruiting    StageName = "fruiting"
	StageMaturity    StageName = "maturity"
)

// RiskCategory names the five scored risk dimensions
type RiskCategory string

const (
	RiskPest     RiskCategory = "pest"
	RiskDisease  RiskCategory = "disease"
	RiskWeather  RiskCategory = "weather"
	RiskNutrient RiskCategory = "nutrient"
	RiskWater    RiskCategory = "water"
)

// RiskFactor is an open concern attached to the current crop stage
type RiskFactor struct {
	Category    RiskCategory  `json:"category"`
	Description LocalizedText `json:"description"`
	Severity    float64       `json:"severity"`
}

// CropStage is the current advisory growth stage. Transitions are
// computed from elapsed days against the per-crop schedule and
// surfaced as alerts; the engine never advances the stage itself.
type CropStage struct {
	Name              StageName    `json:"name"`
	DaysSincePlanting int          `json:"days_since_planting"`
	HealthScore       float64      `json:"health_score"`
	RiskFactors       []RiskFactor `json:"risk_factors,omitempty"`
}

// CropData is one physical planting
type CropData struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	LocalName       string    `json:"local_name"`
	Variety         string    `json:"variety"`
	Type            CropType  `json:"type"`
	PlantingDate    time.Time `json:"planting_date"`
	ExpectedHarvest time.Time `json:"expected_harvest"`
	Stage           CropStage `json:"stage"`
	FieldAreaAcres  float64   `json:"field_area_acres"`
	FieldLocation   Location  `json:"field_location"`
}

// DaysFromPlanting returns whole elapsed days at the given instant
func (c CropData) DaysFromPlanting(now time.Time) int {
	return int(now.Sub(c.PlantingDate).Hours() / 24)
}
