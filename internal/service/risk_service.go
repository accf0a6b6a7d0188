package service

import (
	"time"

	"github.com/montanaflynn/stats"

	"github.com/krishisakhi/backend/internal/domain"
	"github.com/krishisakhi/backend/pkg/utils"
)

// Risk policy constants. Categories with no usable input fall back to
// a neutral score instead of erroring.
const (
	neutralRisk        = 50.0
	recentSignalWindow = 7 * 24 * time.Hour
	minTrendReadings   = 6
)

// RiskAssessor computes the per-category risk breakdown for a crop.
// Assess is pure and total: it never fails, and empty inputs degrade
// to neutral defaults.
type RiskAssessor struct{}

// NewRiskAssessor creates a new risk assessor
func NewRiskAssessor() *RiskAssessor {
	return &RiskAssessor{}
}

// Assess produces a fresh RiskAssessment from the crop stage, the
// sensor series and the attached community signals. Overall is the
// mean of the five category scores.
func (a *RiskAssessor) Assess(crop domain.CropData, history []domain.SensorReading, signals []domain.CommunitySignal) domain.RiskAssessment {
	now := time.Now()

	breakdown := domain.RiskBreakdown{
		Pest:     a.pestRisk(crop, history, signals, now),
		Disease:  a.diseaseRisk(history, signals, now),
		Weather:  a.weatherRisk(history),
		Nutrient: a.nutrientRisk(crop, history),
		Water:    a.waterRisk(history),
	}

	overall, err := stats.Mean(breakdown.Categories())
	if err != nil {
		overall = neutralRisk
	}

	return domain.RiskAssessment{
		Overall:    utils.RoundTo(utils.ClampScore(overall), 2),
		Breakdown:  breakdown,
		Trends:     a.trends(history),
		AssessedAt: now,
	}
}

func (a *RiskAssessor) pestRisk(crop domain.CropData, history []domain.SensorReading, signals []domain.CommunitySignal, now time.Time) float64 {
	score := 20.0
	if r, ok := latestReading(history); ok {
		switch {
		case r.Humidity > 80:
			score += 20
		case r.Humidity > 70:
			score += 10
		}
		// warm band favors most Kerala field pests
		if r.Temperature >= 25 && r.Temperature <= 35 {
			score += 10
		}
	} else {
		score = neutralRisk - 10
	}

	stage := crop.Stage.Name
	if stage == domain.StageFlowering || stage == domain.StageFruiting {
		score += 5
	}

	for _, s := range signals {
		if s.Type == domain.SignalPestSighting && s.Confidence > 0.5 && now.Sub(s.Timestamp) <= recentSignalWindow {
			score += 12 * s.Confidence
		}
	}

	return utils.ClampScore(score)
}

func (a *RiskAssessor) diseaseRisk(history []domain.SensorReading, signals []domain.CommunitySignal, now time.Time) float64 {
	score := 15.0
	if r, ok := latestReading(history); ok {
		switch {
		case r.Humidity > 85:
			score += 25
		case r.Humidity > 75:
			score += 12
		}
		if r.SoilMoisture > 80 {
			score += 15
		}
		if r.Rainfall > 30 {
			score += 10
		}
	} else {
		score = neutralRisk - 10
	}

	for _, s := range signals {
		if s.Type == domain.SignalDiseaseOutbreak && now.Sub(s.Timestamp) <= recentSignalWindow {
			score += 15 * s.Confidence
		}
	}

	return utils.ClampScore(score)
}

func (a *RiskAssessor) weatherRisk(history []domain.SensorReading) float64 {
	r, ok := latestReading(history)
	if !ok {
		return neutralRisk - 10
	}

	score := 25.0
	if r.Temperature > 38 || r.Temperature < 12 {
		score += 25
	}
	if r.Rainfall > 50 {
		score += 20
	} else if r.Rainfall > 30 {
		score += 10
	}
	return utils.ClampScore(score)
}

func (a *RiskAssessor) nutrientRisk(crop domain.CropData, history []domain.SensorReading) float64 {
	// demand peaks while the plant is building flowers and fruit
	var score float64
	switch crop.Stage.Name {
	case domain.StageFlowering, domain.StageFruiting:
		score = 45
	case domain.StageVegetative:
		score = 35
	default:
		score = 25
	}

	r, ok := latestReading(history)
	if !ok {
		return utils.ClampScore(score + 10)
	}
	if r.SoilPH < 5.5 || r.SoilPH > 7.5 {
		score += 20
	} else if r.SoilPH < 6.0 || r.SoilPH > 7.0 {
		score += 8
	}
	return utils.ClampScore(score)
}

func (a *RiskAssessor) waterRisk(history []domain.SensorReading) float64 {
	window := recentReadings(history, 5)
	if len(window) == 0 {
		return neutralRisk
	}

	moistures := make([]float64, 0, len(window))
	for _, r := range window {
		moistures = append(moistures, r.SoilMoisture)
	}
	avg, err := stats.Mean(moistures)
	if err != nil {
		return neutralRisk
	}

	switch {
	case avg < 15:
		return 90
	case avg < 30:
		return 70
	case avg > 90:
		return 75
	case avg > 80:
		return 55
	default:
		return 25
	}
}

// trends compares the newer half of the series against the older half
// for the signals farmers act on day to day.
func (a *RiskAssessor) trends(history []domain.SensorReading) []domain.RiskTrend {
	if len(history) < minTrendReadings {
		return nil
	}

	mid := len(history) / 2
	older, newer := history[:mid], history[mid:]

	trendOf := func(name string, pick func(domain.SensorReading) float64) domain.RiskTrend {
		oldMean, _ := stats.Mean(pickAll(older, pick))
		newMean, _ := stats.Mean(pickAll(newer, pick))
		diff := newMean - oldMean

		dir := domain.TrendStable
		if diff > 3 {
			dir = domain.TrendIncreasing
		} else if diff < -3 {
			dir = domain.TrendDecreasing
		}
		return domain.RiskTrend{
			Name:       name,
			Direction:  dir,
			Confidence: utils.Clamp01(0.5 + absFloat(diff)/50),
			Timeframe:  "last 7 days",
		}
	}

	return []domain.RiskTrend{
		trendOf("soil_moisture", func(r domain.SensorReading) float64 { return r.SoilMoisture }),
		trendOf("humidity", func(r domain.SensorReading) float64 { return r.Humidity }),
		trendOf("temperature", func(r domain.SensorReading) float64 { return r.Temperature }),
	}
}

func latestReading(history []domain.SensorReading) (domain.SensorReading, bool) {
	if len(history) == 0 {
		return domain.SensorReading{}, false
	}
	return history[len(history)-1], true
}

func recentReadings(history []domain.SensorReading, n int) []domain.SensorReading {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func pickAll(readings []domain.SensorReading, pick func(domain.SensorReading) float64) []float64 {
	out := make([]float64, 0, len(readings))
	for _, r := range readings {
		out = append(out, pick(r))
	}
	return out
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
