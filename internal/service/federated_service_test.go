package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishisakhi/backend/internal/domain"
)

// zeroNoise keeps submitted values exact so averages are predictable
type zeroNoise struct{}

func (zeroNoise) Sample(scale float64) float64 { return 0 }

func fedTwin(farmerID, district string) *domain.CropTwin {
	return &domain.CropTwin{
		ID:       farmerID + "_crop1_1",
		FarmerID: farmerID,
		Profile: domain.FarmerProfile{
			ID:       farmerID,
			Location: domain.FarmLocation{District: district, Taluk: "Chalakudy"},
		},
		Crop: domain.CropData{
			ID:   "crop1",
			Name: "Rice",
			Type: domain.CropRice,
		},
		HealthScore: 80,
		SensorHistory: []domain.SensorReading{
			{SoilMoisture: 55, Temperature: 28, Humidity: 75, Rainfall: 5},
		},
		Risk: domain.RiskAssessment{
			Overall:   40,
			Breakdown: domain.RiskBreakdown{Pest: 30, Disease: 25},
		},
		Learning: domain.FederatedLearningModel{PrivacyLevel: domain.PrivacyHigh},
	}
}

func TestSubmitUpdatePrivacyGate(t *testing.T) {
	f := NewFederatedAggregator(0, zeroNoise{})

	twin := fedTwin("farmer1", "Thrissur")
	twin.Learning.PrivacyLevel = domain.PrivacyMedium
	assert.False(t, f.SubmitUpdate(twin))

	twin.Learning.PrivacyLevel = domain.PrivacyLow
	assert.False(t, f.SubmitUpdate(twin))

	assert.Equal(t, 0, f.TotalQueued())
}

func TestSubmitUpdateBelowThresholdNoAggregation(t *testing.T) {
	f := NewFederatedAggregator(0, zeroNoise{})
	twin := fedTwin("farmer1", "Thrissur")

	for i := 0; i < 49; i++ {
		assert.False(t, f.SubmitUpdate(twin))
	}

	assert.Equal(t, 49, f.TotalQueued())
	model := f.GlobalModel()
	assert.Equal(t, "1.0.0", model.Version)
	assert.Empty(t, model.Insights)
}

func TestSubmitUpdateTriggersAggregation(t *testing.T) {
	f := NewFederatedAggregator(0, zeroNoise{})
	twin := fedTwin("farmer1", "Thrissur")

	for i := 0; i < 49; i++ {
		require.False(t, f.SubmitUpdate(twin))
	}
	assert.True(t, f.SubmitUpdate(twin), "50th update should trigger the averaging pass")

	assert.Equal(t, 0, f.TotalQueued(), "queues are consumed by aggregation")

	model := f.GlobalModel()
	assert.Equal(t, "1.0.1", model.Version)
	assert.Equal(t, 1, model.ParticipatingFarmers)
	assert.False(t, model.LastUpdate.IsZero())

	key := domain.InsightKey(domain.CropRice, "Thrissur_Chalakudy")
	insight, ok := model.Insights[key]
	require.True(t, ok)
	assert.Equal(t, 50, insight.SampleSize)
	// identical zero-noise contributions average to themselves
	assert.InDelta(t, 55, insight.Seasonal.AvgSoilMoisture, 0.001)
	assert.InDelta(t, 30, insight.Risk.PestIncidence, 0.001)
	assert.InDelta(t, 0.8, insight.Treatment.EffectivenessScore, 0.001)
	// big, mostly complete group caps out at the confidence ceiling
	assert.InDelta(t, 0.95, insight.Confidence, 0.001)
}

func TestAggregationDiscardsSmallGroups(t *testing.T) {
	f := NewFederatedAggregator(0, zeroNoise{})

	// fifty farmers in fifty distinct regions: every group has one
	// sample and gets discarded, but the pass itself still runs
	for i := 0; i < 50; i++ {
		twin := fedTwin(fmt.Sprintf("farmer%d", i), fmt.Sprintf("District%d", i))
		f.SubmitUpdate(twin)
	}

	model := f.GlobalModel()
	assert.Equal(t, "1.0.1", model.Version)
	assert.Empty(t, model.Insights)
	assert.Equal(t, 0, f.TotalQueued())
}

func TestAggregationAccuracyFromConfidentGroups(t *testing.T) {
	f := NewFederatedAggregator(0, zeroNoise{})

	// two groups of 25, both comfortably over the confidence bar
	for i := 0; i < 25; i++ {
		f.SubmitUpdate(fedTwin("farmerA", "Thrissur"))
	}
	for i := 0; i < 25; i++ {
		f.SubmitUpdate(fedTwin("farmerB", "Palakkad"))
	}

	model := f.GlobalModel()
	assert.Len(t, model.Insights, 2)
	assert.Equal(t, 2, model.ParticipatingFarmers)
	assert.InDelta(t, 1.0, model.Accuracy, 0.001)
}

func TestLaplaceSourceSeededDeterminism(t *testing.T) {
	a := NewLaplaceSource(42)
	b := NewLaplaceSource(42)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Sample(10), b.Sample(10))
	}
}

func TestAnonymizedValuesFlooredAtZero(t *testing.T) {
	// huge scale makes large negative noise draws likely; submitted
	// values must still never go below zero
	f := NewFederatedAggregator(0.001, NewLaplaceSource(7))
	twin := fedTwin("farmer1", "Thrissur")

	for i := 0; i < 50; i++ {
		f.SubmitUpdate(twin)
	}

	model := f.GlobalModel()
	for _, insight := range model.Insights {
		assert.GreaterOrEqual(t, insight.Seasonal.AvgSoilMoisture, 0.0)
		assert.GreaterOrEqual(t, insight.Seasonal.RainfallMM, 0.0)
		assert.GreaterOrEqual(t, insight.Treatment.EffectivenessScore, 0.0)
		assert.GreaterOrEqual(t, insight.Risk.AvgOverallRisk, 0.0)
	}
}

func TestPersonalizedRecommendations(t *testing.T) {
	f := NewFederatedAggregator(0, zeroNoise{})
	twin := fedTwin("farmer1", "Thrissur")

	// unknown region before any aggregation
	assert.Empty(t, f.PersonalizedRecommendations(twin))

	for i := 0; i < 50; i++ {
		f.SubmitUpdate(twin)
	}

	recs := f.PersonalizedRecommendations(twin)
	require.Len(t, recs, 3)
	for _, rec := range recs {
		assert.NotEmpty(t, rec.Title.EN)
		assert.NotEmpty(t, rec.Title.ML)
		assert.NotEmpty(t, rec.Description.EN)
		assert.NotEmpty(t, rec.Description.ML)
		assert.InDelta(t, 0.7, rec.Confidence, 0.001)
		assert.Contains(t, rec.Explainability.DataSources, "federated_regional_model")
	}
	assert.Equal(t, recs, f.PersonalizedRecommendations(twin), "re-reading an unchanged model is stable")

	// a different region still has no insight
	other := fedTwin("farmer2", "Kozhikode")
	assert.Empty(t, f.PersonalizedRecommendations(other))
}

func TestGlobalModelReturnsCopy(t *testing.T) {
	f := NewFederatedAggregator(0, zeroNoise{})
	for i := 0; i < 50; i++ {
		f.SubmitUpdate(fedTwin("farmer1", "Thrissur"))
	}

	model := f.GlobalModel()
	for k := range model.Insights {
		delete(model.Insights, k)
	}
	assert.NotEmpty(t, f.GlobalModel().Insights)
}

func TestBumpPatch(t *testing.T) {
	assert.Equal(t, "1.0.1", bumpPatch("1.0.0"))
	assert.Equal(t, "2.3.10", bumpPatch("2.3.9"))
	assert.Equal(t, "1.0.1", bumpPatch("garbage"))
}
