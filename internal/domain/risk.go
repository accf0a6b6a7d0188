package domain

import "time"

// TrendDirection describes where a risk signal is heading
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// RiskTrend is a named directional movement in the assessed data
type RiskTrend struct {
	Name       string         `json:"name"`
	Direction  TrendDirection `json:"direction"`
	Confidence float64        `json:"confidence"` // [0,1]
	Timeframe  string         `json:"timeframe"`
}

// RiskBreakdown scores each risk category independently, [0,100]
type RiskBreakdown struct {
	Pest     float64 `json:"pest"`
	Disease  float64 `json:"disease"`
	Weather  float64 `json:"weather"`
	Nutrient float64 `json:"nutrient"`
	Water    float64 `json:"water"`
}

// Categories returns the five scores in fixed order for averaging
func (b RiskBreakdown) Categories() []float64 {
	return []float64{b.Pest, b.Disease, b.Weather, b.Nutrient, b.Water}
}

// RiskAssessment is fully recomputed on every update; there is no
// incremental state. Overall is the mean of the five categories.
type RiskAssessment struct {
	Overall    float64       `json:"overall"` // [0,100]
	Breakdown  RiskBreakdown `json:"breakdown"`
	Trends     []RiskTrend   `json:"trends,omitempty"`
	AssessedAt time.Time     `json:"assessed_at"`
}
