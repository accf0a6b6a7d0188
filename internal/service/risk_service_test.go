package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/krishisakhi/backend/internal/domain"
	"github.com/krishisakhi/backend/pkg/utils"
)

func TestAssessEmptyInputsNeutral(t *testing.T) {
	a := NewRiskAssessor()
	crop := domain.CropData{Name: "Rice", Type: domain.CropRice, Stage: domain.CropStage{Name: domain.StageGermination}}

	out := a.Assess(crop, nil, nil)

	// no sensors, no signals: every category degrades to its neutral-ish
	// default instead of erroring
	assert.InDelta(t, 40, out.Breakdown.Pest, 0.001)
	assert.InDelta(t, 40, out.Breakdown.Disease, 0.001)
	assert.InDelta(t, 40, out.Breakdown.Weather, 0.001)
	assert.InDelta(t, 35, out.Breakdown.Nutrient, 0.001)
	assert.InDelta(t, 50, out.Breakdown.Water, 0.001)
	assert.InDelta(t, 41, out.Overall, 0.001)
	assert.Empty(t, out.Trends)
	assert.False(t, out.AssessedAt.IsZero())
}

func TestAssessScoresStayClamped(t *testing.T) {
	a := NewRiskAssessor()
	crop := domain.CropData{Name: "Rice", Type: domain.CropRice, Stage: domain.CropStage{Name: domain.StageFlowering}}
	now := time.Now()

	history := []domain.SensorReading{{
		Timestamp:    now,
		SoilMoisture: 8,
		SoilPH:       4.2,
		Temperature:  30,
		Humidity:     95,
		Rainfall:     60,
	}}
	signals := []domain.CommunitySignal{
		{Type: domain.SignalPestSighting, Confidence: 1, Timestamp: now},
		{Type: domain.SignalPestSighting, Confidence: 1, Timestamp: now},
		{Type: domain.SignalDiseaseOutbreak, Confidence: 1, Timestamp: now},
	}

	out := a.Assess(crop, history, signals)

	for _, v := range out.Breakdown.Categories() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
	assert.GreaterOrEqual(t, out.Overall, 0.0)
	assert.LessOrEqual(t, out.Overall, 100.0)
	// hostile conditions must actually move the needle
	assert.Greater(t, out.Overall, 50.0)
	// overall is presented at two decimals
	assert.InDelta(t, utils.RoundTo(out.Overall, 2), out.Overall, 1e-9)
}

func TestAssessStaleSignalsIgnored(t *testing.T) {
	a := NewRiskAssessor()
	crop := domain.CropData{Name: "Rice", Type: domain.CropRice, Stage: domain.CropStage{Name: domain.StageVegetative}}
	now := time.Now()

	fresh := []domain.CommunitySignal{{Type: domain.SignalPestSighting, Confidence: 0.9, Timestamp: now.Add(-time.Hour)}}
	stale := []domain.CommunitySignal{{Type: domain.SignalPestSighting, Confidence: 0.9, Timestamp: now.Add(-8 * 24 * time.Hour)}}

	withFresh := a.Assess(crop, nil, fresh)
	withStale := a.Assess(crop, nil, stale)
	baseline := a.Assess(crop, nil, nil)

	assert.Greater(t, withFresh.Breakdown.Pest, baseline.Breakdown.Pest)
	assert.InDelta(t, baseline.Breakdown.Pest, withStale.Breakdown.Pest, 0.001)
}

func TestAssessWaterRiskFromMoistureAverage(t *testing.T) {
	a := NewRiskAssessor()
	crop := domain.CropData{Name: "Rice", Type: domain.CropRice, Stage: domain.CropStage{Name: domain.StageVegetative}}

	dry := make([]domain.SensorReading, 5)
	for i := range dry {
		dry[i] = domain.SensorReading{SoilMoisture: 10, SoilPH: 6.5, Temperature: 28}
	}
	soaked := make([]domain.SensorReading, 5)
	for i := range soaked {
		soaked[i] = domain.SensorReading{SoilMoisture: 95, SoilPH: 6.5, Temperature: 28}
	}
	comfortable := make([]domain.SensorReading, 5)
	for i := range comfortable {
		comfortable[i] = domain.SensorReading{SoilMoisture: 50, SoilPH: 6.5, Temperature: 28}
	}

	assert.InDelta(t, 90, a.Assess(crop, dry, nil).Breakdown.Water, 0.001)
	assert.InDelta(t, 75, a.Assess(crop, soaked, nil).Breakdown.Water, 0.001)
	assert.InDelta(t, 25, a.Assess(crop, comfortable, nil).Breakdown.Water, 0.001)
}

func TestAssessTrendsDirection(t *testing.T) {
	a := NewRiskAssessor()
	crop := domain.CropData{Name: "Rice", Type: domain.CropRice, Stage: domain.CropStage{Name: domain.StageVegetative}}

	history := make([]domain.SensorReading, 0, 6)
	for i := 0; i < 3; i++ {
		history = append(history, domain.SensorReading{SoilMoisture: 40, Humidity: 70, Temperature: 30})
	}
	for i := 0; i < 3; i++ {
		history = append(history, domain.SensorReading{SoilMoisture: 60, Humidity: 70, Temperature: 30})
	}

	out := a.Assess(crop, history, nil)
	assert.Len(t, out.Trends, 3)

	byName := map[string]domain.RiskTrend{}
	for _, tr := range out.Trends {
		byName[tr.Name] = tr
	}
	assert.Equal(t, domain.TrendIncreasing, byName["soil_moisture"].Direction)
	assert.Equal(t, domain.TrendStable, byName["humidity"].Direction)
	assert.Equal(t, domain.TrendStable, byName["temperature"].Direction)
	for _, tr := range out.Trends {
		assert.GreaterOrEqual(t, tr.Confidence, 0.0)
		assert.LessOrEqual(t, tr.Confidence, 1.0)
	}
}

func TestAssessTooFewReadingsNoTrends(t *testing.T) {
	a := NewRiskAssessor()
	crop := domain.CropData{Name: "Rice", Type: domain.CropRice}

	history := make([]domain.SensorReading, 5)
	out := a.Assess(crop, history, nil)
	assert.Empty(t, out.Trends)
}
