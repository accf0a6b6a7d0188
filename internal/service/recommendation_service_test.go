package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishisakhi/backend/internal/domain"
)

func recTwin() *domain.CropTwin {
	return &domain.CropTwin{
		ID:       "farmer1_crop1_1",
		FarmerID: "farmer1",
		Crop: domain.CropData{
			ID:        "crop1",
			Name:      "Rice",
			LocalName: "നെല്ല്",
			Type:      domain.CropRice,
			Stage:     domain.CropStage{Name: domain.StageVegetative},
		},
		HealthScore: 80,
	}
}

func findRec(recs []domain.Recommendation, titleEN string) *domain.Recommendation {
	for i := range recs {
		if recs[i].Title.EN == titleEN {
			return &recs[i]
		}
	}
	return nil
}

func TestGenerateQuietTwinNoRecommendations(t *testing.T) {
	s := NewRecommendationService()
	twin := recTwin()
	twin.Risk.Breakdown = domain.RiskBreakdown{Pest: 10, Disease: 10, Weather: 10, Nutrient: 10, Water: 10}

	assert.Empty(t, s.Generate(twin))
}

func TestGeneratePestRecommendation(t *testing.T) {
	s := NewRecommendationService()

	twin := recTwin()
	twin.Risk.Breakdown.Pest = 50
	recs := s.Generate(twin)
	rec := findRec(recs, "Pest management required")
	require.NotNil(t, rec)
	assert.Equal(t, domain.PriorityHigh, rec.Priority)
	assert.Equal(t, domain.RecPreventive, rec.Type)
	assert.Len(t, rec.Actions, 2)
	assert.Len(t, rec.Explainability.Alternatives, 2)
	assert.NotEmpty(t, rec.Title.ML)
	assert.NotEmpty(t, rec.Description.ML)

	twin.Risk.Breakdown.Pest = 85
	rec = findRec(s.Generate(twin), "Pest management required")
	require.NotNil(t, rec)
	assert.Equal(t, domain.PriorityCritical, rec.Priority)
}

func TestGenerateIrrigationRecommendation(t *testing.T) {
	s := NewRecommendationService()

	twin := recTwin()
	twin.SensorHistory = []domain.SensorReading{{SoilMoisture: 22, SoilPH: 6.5, Temperature: 28}}
	rec := findRec(s.Generate(twin), "Irrigation needed")
	require.NotNil(t, rec)
	assert.Equal(t, domain.PriorityHigh, rec.Priority)
	assert.Equal(t, "within 6 hours", rec.Timing)

	// below the critical floor the due window tightens to two hours
	twin.SensorHistory = []domain.SensorReading{{SoilMoisture: 10, SoilPH: 6.5, Temperature: 28}}
	rec = findRec(s.Generate(twin), "Irrigation needed")
	require.NotNil(t, rec)
	assert.Equal(t, domain.PriorityCritical, rec.Priority)
	assert.Equal(t, "within 2 hours", rec.Timing)
	require.Len(t, rec.Actions, 1)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), rec.Actions[0].DueDate, time.Minute)

	// healthy moisture produces nothing
	twin.SensorHistory = []domain.SensorReading{{SoilMoisture: 55, SoilPH: 6.5, Temperature: 28}}
	assert.Nil(t, findRec(s.Generate(twin), "Irrigation needed"))
}

func TestGenerateNutrientRecommendationByStage(t *testing.T) {
	s := NewRecommendationService()

	twin := recTwin()
	twin.Crop.Stage.Name = domain.StageFlowering
	twin.Risk.Breakdown.Nutrient = 50

	rec := findRec(s.Generate(twin), "Fertilizer application due")
	require.NotNil(t, rec)
	assert.Equal(t, domain.PriorityMedium, rec.Priority)
	require.Len(t, rec.Actions, 1)
	assert.Contains(t, rec.Actions[0].Materials, "phosphorus-rich mix")

	twin.Risk.Breakdown.Nutrient = 35
	assert.Nil(t, findRec(s.Generate(twin), "Fertilizer application due"))
}

func TestGenerateWeatherRecommendations(t *testing.T) {
	s := NewRecommendationService()
	now := time.Now()

	twin := recTwin()
	twin.Weather.Alerts = []domain.WeatherAlert{
		{Type: domain.WeatherHeavyRain, Severity: domain.WeatherSeverityWarning, ValidFrom: now, ValidUntil: now.Add(48 * time.Hour)},
		{Type: domain.WeatherCyclone, Severity: domain.WeatherSeverityAlert, ValidFrom: now, ValidUntil: now.Add(24 * time.Hour)},
	}

	recs := s.Generate(twin)
	count := 0
	sawCritical := false
	for _, r := range recs {
		if r.Title.EN == "Weather protection needed" {
			count++
			if r.Priority == domain.PriorityCritical {
				sawCritical = true
			}
		}
	}
	assert.Equal(t, 2, count)
	assert.True(t, sawCritical, "alert-severity weather should escalate to critical")
}

func TestGenerateHarvestRecommendation(t *testing.T) {
	s := NewRecommendationService()

	twin := recTwin()
	twin.Crop.Stage.Name = domain.StageMaturity
	rec := findRec(s.Generate(twin), "Plan your harvest")
	require.NotNil(t, rec)
	assert.Equal(t, "in 7 days", rec.Timing)

	// a forecast narrows the window
	twin.Weather.Forecast = []domain.ForecastDay{{Date: time.Now().AddDate(0, 0, 1)}}
	rec = findRec(s.Generate(twin), "Plan your harvest")
	require.NotNil(t, rec)
	assert.Equal(t, "in 5 days", rec.Timing)
}

func TestGenerateCommunityPestRecommendation(t *testing.T) {
	s := NewRecommendationService()
	now := time.Now()

	sighting := domain.CommunitySignal{Type: domain.SignalPestSighting, Confidence: 0.9, Timestamp: now}

	twin := recTwin()
	twin.CommunitySignals = []domain.CommunitySignal{sighting, sighting}
	assert.Nil(t, findRec(s.Generate(twin), "Pest activity reported nearby"))

	twin.CommunitySignals = append(twin.CommunitySignals, sighting)
	rec := findRec(s.Generate(twin), "Pest activity reported nearby")
	require.NotNil(t, rec)
	assert.Equal(t, domain.PriorityHigh, rec.Priority)

	// low-confidence reports never count
	weak := domain.CommunitySignal{Type: domain.SignalPestSighting, Confidence: 0.4, Timestamp: now}
	twin.CommunitySignals = []domain.CommunitySignal{weak, weak, weak, weak}
	assert.Nil(t, findRec(s.Generate(twin), "Pest activity reported nearby"))
}

func TestGenerateSortedByPriority(t *testing.T) {
	s := NewRecommendationService()

	twin := recTwin()
	twin.Risk.Breakdown.Pest = 50     // high
	twin.Risk.Breakdown.Nutrient = 50 // medium
	twin.SensorHistory = []domain.SensorReading{{SoilMoisture: 10, SoilPH: 6.5, Temperature: 28}} // critical

	recs := s.Generate(twin)
	require.GreaterOrEqual(t, len(recs), 3)
	assert.Equal(t, domain.PriorityCritical, recs[0].Priority)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Priority.Rank(), recs[i].Priority.Rank())
	}
}

func TestGenerateRepeatable(t *testing.T) {
	s := NewRecommendationService()

	twin := recTwin()
	twin.Risk.AssessedAt = time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	twin.Risk.Breakdown.Pest = 85
	twin.SensorHistory = []domain.SensorReading{{SoilMoisture: 10, SoilPH: 6.5, Temperature: 28}}

	first := s.Generate(twin)
	second := s.Generate(twin)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second, "same twin state, same output, ids included")
	for _, rec := range first {
		assert.NotEmpty(t, rec.ID)
	}
}

func TestGenerateEveryTextIsBilingual(t *testing.T) {
	s := NewRecommendationService()

	twin := recTwin()
	twin.Risk.Breakdown.Pest = 85
	twin.Risk.Breakdown.Nutrient = 50
	twin.SensorHistory = []domain.SensorReading{{SoilMoisture: 10, SoilPH: 6.5, Temperature: 28}}

	for _, rec := range s.Generate(twin) {
		assert.NotEmpty(t, rec.Title.EN)
		assert.NotEmpty(t, rec.Title.ML)
		assert.NotEmpty(t, rec.Description.EN)
		assert.NotEmpty(t, rec.Description.ML)
		assert.NotEmpty(t, rec.Explainability.Reasoning.EN)
		assert.NotEmpty(t, rec.Explainability.Reasoning.ML)
		for _, act := range rec.Actions {
			assert.NotEmpty(t, act.Task.EN)
			assert.NotEmpty(t, act.Task.ML)
		}
	}
}
