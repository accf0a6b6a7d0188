package service

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/krishisakhi/backend/internal/domain"
	"github.com/krishisakhi/backend/pkg/utils"
)

// Federated learning policy constants
const (
	defaultEpsilon       = 0.1
	aggregationThreshold = 50  // total queued updates that trigger averaging
	minGroupSamples      = 3   // groups below this are discarded
	maxLocalQueue        = 100 // per-farmer queue cap
	maxGroupConfidence   = 0.95
	insightConfidence    = 0.7 // fixed confidence on derived stubs
)

// NoiseSource produces privacy noise. Isolated behind an interface so
// the RNG is injectable for reproducible test vectors.
type NoiseSource interface {
	Sample(scale float64) float64
}

// laplaceSource samples Laplace(0, scale) noise by inverse-CDF
// transform of a uniform draw.
type laplaceSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLaplaceSource creates a seeded Laplace noise source
func NewLaplaceSource(seed int64) NoiseSource {
	return &laplaceSource{rng: rand.New(rand.NewSource(seed))}
}

func (l *laplaceSource) Sample(scale float64) float64 {
	l.mu.Lock()
	u := l.rng.Float64() - 0.5
	l.mu.Unlock()
	if u == 0 {
		return 0
	}
	sign := 1.0
	if u < 0 {
		sign = -1
	}
	return -scale * sign * math.Log(1-2*math.Abs(u))
}

// FederatedAggregator accumulates anonymized per-farmer learning
// updates and periodically folds them into a single versioned global
// model. It is shared mutable state across every twin's recomputation
// pass, so all access goes through one mutex. It never returns errors:
// missing data degrades to empty or neutral output.
type FederatedAggregator struct {
	mu      sync.Mutex
	epsilon float64
	noise   NoiseSource
	queues  map[string][]domain.LearningUpdate // keyed by farmer id
	global  domain.GlobalModel
}

// NewFederatedAggregator creates an aggregator. A nil noise source
// gets a time-seeded Laplace source; tests inject a seeded one.
func NewFederatedAggregator(epsilon float64, noise NoiseSource) *FederatedAggregator {
	if epsilon <= 0 {
		epsilon = defaultEpsilon
	}
	if noise == nil {
		noise = NewLaplaceSource(time.Now().UnixNano())
	}
	return &FederatedAggregator{
		epsilon: epsilon,
		noise:   noise,
		queues:  make(map[string][]domain.LearningUpdate),
		global: domain.GlobalModel{
			Version:  "1.0.0",
			Accuracy: 0.5,
			Insights: make(map[string]domain.RegionalInsight),
		},
	}
}

// SubmitUpdate derives an anonymized learning update from the twin and
// queues it. Updates from twins below "high" privacy are silently
// dropped. Returns true when the submission triggered an aggregation
// pass (total queued reached the threshold).
func (f *FederatedAggregator) SubmitUpdate(twin *domain.CropTwin) bool {
	if twin.Learning.PrivacyLevel != domain.PrivacyHigh {
		return false
	}

	update := f.buildUpdate(twin)
	f.anonymize(&update)

	f.mu.Lock()
	defer f.mu.Unlock()

	q := append(f.queues[twin.FarmerID], update)
	if len(q) > maxLocalQueue {
		q = q[len(q)-maxLocalQueue:]
	}
	f.queues[twin.FarmerID] = q

	if f.totalQueuedLocked() >= aggregationThreshold {
		f.aggregateLocked()
		return true
	}
	return false
}

func (f *FederatedAggregator) buildUpdate(twin *domain.CropTwin) domain.LearningUpdate {
	recent := recentReadings(twin.SensorHistory, 20)

	seasonal := domain.SeasonalPattern{}
	if len(recent) > 0 {
		seasonal.AvgSoilMoisture, _ = stats.Mean(pickAll(recent, func(r domain.SensorReading) float64 { return r.SoilMoisture }))
		seasonal.AvgTemperature, _ = stats.Mean(pickAll(recent, func(r domain.SensorReading) float64 { return r.Temperature }))
		seasonal.AvgHumidity, _ = stats.Mean(pickAll(recent, func(r domain.SensorReading) float64 { return r.Humidity }))
		seasonal.RainfallMM, _ = stats.Sum(pickAll(recent, func(r domain.SensorReading) float64 { return r.Rainfall }))
	}

	treatment := domain.TreatmentPattern{EffectivenessScore: twin.HealthScore / 100}
	for _, a := range twin.Activities {
		switch a.Type {
		case domain.ActivityFertilizer:
			treatment.FertilizerApplications++
		case domain.ActivityPesticide:
			treatment.PesticideApplications++
		case domain.ActivityIrrigation:
			treatment.IrrigationEvents++
		}
	}

	return domain.LearningUpdate{
		FarmerID:  twin.FarmerID,
		CropType:  twin.Crop.Type,
		Region:    twin.Profile.RegionKey(),
		Seasonal:  seasonal,
		Treatment: treatment,
		Risk: domain.RiskPattern{
			PestIncidence:    twin.Risk.Breakdown.Pest,
			DiseaseIncidence: twin.Risk.Breakdown.Disease,
			AvgOverallRisk:   twin.Risk.Overall,
		},
		Timestamp: time.Now(),
	}
}

// anonymize adds independent Laplace noise (scale 1/epsilon) to every
// numeric field of the update, floored at zero.
func (f *FederatedAggregator) anonymize(u *domain.LearningUpdate) {
	scale := 1 / f.epsilon
	noisy := func(v float64) float64 {
		v += f.noise.Sample(scale)
		if v < 0 {
			return 0
		}
		return v
	}

	u.Seasonal.AvgSoilMoisture = noisy(u.Seasonal.AvgSoilMoisture)
	u.Seasonal.AvgTemperature = noisy(u.Seasonal.AvgTemperature)
	u.Seasonal.AvgHumidity = noisy(u.Seasonal.AvgHumidity)
	u.Seasonal.RainfallMM = noisy(u.Seasonal.RainfallMM)

	u.Treatment.FertilizerApplications = noisy(u.Treatment.FertilizerApplications)
	u.Treatment.PesticideApplications = noisy(u.Treatment.PesticideApplications)
	u.Treatment.IrrigationEvents = noisy(u.Treatment.IrrigationEvents)
	u.Treatment.EffectivenessScore = noisy(u.Treatment.EffectivenessScore)

	u.Risk.PestIncidence = noisy(u.Risk.PestIncidence)
	u.Risk.DiseaseIncidence = noisy(u.Risk.DiseaseIncidence)
	u.Risk.AvgOverallRisk = noisy(u.Risk.AvgOverallRisk)
}

func (f *FederatedAggregator) totalQueuedLocked() int {
	total := 0
	for _, q := range f.queues {
		total += len(q)
	}
	return total
}

// aggregateLocked performs one federated-averaging pass: group queued
// updates by (cropType, region), discard undersized groups, average
// the rest, bump the patch version and clear every local queue. This
// is a consuming batch operation, not a streaming one.
func (f *FederatedAggregator) aggregateLocked() {
	now := time.Now()

	groups := make(map[string][]domain.LearningUpdate)
	participants := 0
	for _, q := range f.queues {
		if len(q) > 0 {
			participants++
		}
		for _, u := range q {
			key := domain.InsightKey(u.CropType, u.Region)
			groups[key] = append(groups[key], u)
		}
	}

	confident := 0
	kept := 0
	for key, group := range groups {
		if len(group) < minGroupSamples {
			continue
		}
		insight := f.averageGroup(key, group, now)
		f.global.Insights[key] = insight
		kept++
		if insight.Confidence > 0.7 {
			confident++
		}
	}

	if kept > 0 {
		f.global.Accuracy = utils.Clamp01(float64(confident) / float64(kept))
	}
	f.global.ParticipatingFarmers = participants
	f.global.LastUpdate = now
	f.global.Version = bumpPatch(f.global.Version)

	f.queues = make(map[string][]domain.LearningUpdate)
}

func (f *FederatedAggregator) averageGroup(key string, group []domain.LearningUpdate, now time.Time) domain.RegionalInsight {
	n := len(group)
	mean := func(pick func(domain.LearningUpdate) float64) float64 {
		vals := make([]float64, 0, n)
		for _, u := range group {
			vals = append(vals, pick(u))
		}
		m, err := stats.Mean(vals)
		if err != nil {
			return 0
		}
		return m
	}

	// completeness: share of numeric fields across the group carrying
	// an actual (non-zero) observation
	nonZero, fields := 0, 0
	for _, u := range group {
		for _, v := range []float64{
			u.Seasonal.AvgSoilMoisture, u.Seasonal.AvgTemperature, u.Seasonal.AvgHumidity, u.Seasonal.RainfallMM,
			u.Treatment.FertilizerApplications, u.Treatment.PesticideApplications, u.Treatment.IrrigationEvents, u.Treatment.EffectivenessScore,
			u.Risk.PestIncidence, u.Risk.DiseaseIncidence, u.Risk.AvgOverallRisk,
		} {
			fields++
			if v != 0 {
				nonZero++
			}
		}
	}
	completeness := 0.0
	if fields > 0 {
		completeness = float64(nonZero) / float64(fields)
	}

	confidence := 0.5 + 0.1*float64(n) + 0.3*completeness
	if confidence > maxGroupConfidence {
		confidence = maxGroupConfidence
	}

	return domain.RegionalInsight{
		Key:        key,
		CropType:   group[0].CropType,
		Region:     group[0].Region,
		SampleSize: n,
		Confidence: confidence,
		Seasonal: domain.SeasonalPattern{
			AvgSoilMoisture: mean(func(u domain.LearningUpdate) float64 { return u.Seasonal.AvgSoilMoisture }),
			AvgTemperature:  mean(func(u domain.LearningUpdate) float64 { return u.Seasonal.AvgTemperature }),
			AvgHumidity:     mean(func(u domain.LearningUpdate) float64 { return u.Seasonal.AvgHumidity }),
			RainfallMM:      mean(func(u domain.LearningUpdate) float64 { return u.Seasonal.RainfallMM }),
		},
		Treatment: domain.TreatmentPattern{
			FertilizerApplications: mean(func(u domain.LearningUpdate) float64 { return u.Treatment.FertilizerApplications }),
			PesticideApplications:  mean(func(u domain.LearningUpdate) float64 { return u.Treatment.PesticideApplications }),
			IrrigationEvents:       mean(func(u domain.LearningUpdate) float64 { return u.Treatment.IrrigationEvents }),
			EffectivenessScore:     mean(func(u domain.LearningUpdate) float64 { return u.Treatment.EffectivenessScore }),
		},
		Risk: domain.RiskPattern{
			PestIncidence:    mean(func(u domain.LearningUpdate) float64 { return u.Risk.PestIncidence }),
			DiseaseIncidence: mean(func(u domain.LearningUpdate) float64 { return u.Risk.DiseaseIncidence }),
			AvgOverallRisk:   mean(func(u domain.LearningUpdate) float64 { return u.Risk.AvgOverallRisk }),
		},
		UpdatedAt: now,
	}
}

// bumpPatch increments the patch component of a semver-ish version
func bumpPatch(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return "1.0.1"
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return "1.0.1"
	}
	return fmt.Sprintf("%s.%s.%d", parts[0], parts[1], patch+1)
}

// PersonalizedRecommendations derives up to three recommendation stubs
// from the regional insight matching the twin's crop and region. A
// missing insight yields an empty list, never an error.
func (f *FederatedAggregator) PersonalizedRecommendations(twin *domain.CropTwin) []domain.Recommendation {
	f.mu.Lock()
	insight, ok := f.global.Insights[domain.InsightKey(twin.Crop.Type, twin.Profile.RegionKey())]
	f.mu.Unlock()
	if !ok {
		return nil
	}

	explain := func(reason domain.LocalizedText) domain.Explainability {
		return domain.Explainability{
			Reasoning:    reason,
			DataSources:  []string{"federated_regional_model"},
			Confidence:   insightConfidence,
			Alternatives: []domain.Alternative{},
		}
	}

	return []domain.Recommendation{
		{
			ID:       artifactID(twin.ID, "federated/seasonal"),
			Type:     domain.RecAdvisory,
			Priority: domain.PriorityMedium,
			Title:    domain.LocalizedText{EN: "Seasonal pattern for your region", ML: "നിങ്ങളുടെ പ്രദേശത്തെ കാലാനുസൃത രീതി"},
			Description: domain.LocalizedText{
				EN: fmt.Sprintf("Farms like yours in %s average %.0f%% soil moisture this season. Aim for a similar range.", insight.Region, insight.Seasonal.AvgSoilMoisture),
				ML: fmt.Sprintf("നിങ്ങളുടേതുപോലുള്ള കൃഷിയിടങ്ങളിൽ ഈ സീസണിൽ ശരാശരി %.0f%% മണ്ണിലെ ഈർപ്പമാണ്. സമാന നില നിലനിർത്തുക.", insight.Seasonal.AvgSoilMoisture),
			},
			Timing:     "this season",
			Confidence: insightConfidence,
			Explainability: explain(domain.LocalizedText{
				EN: fmt.Sprintf("Aggregated from %d anonymized farms growing the same crop in your region.", insight.SampleSize),
				ML: fmt.Sprintf("നിങ്ങളുടെ പ്രദേശത്തെ %d അജ്ഞാത കൃഷിയിടങ്ങളിൽ നിന്ന് സമാഹരിച്ചത്.", insight.SampleSize),
			}),
		},
		{
			ID:       artifactID(twin.ID, "federated/treatment"),
			Type:     domain.RecAdvisory,
			Priority: domain.PriorityMedium,
			Title:    domain.LocalizedText{EN: "Treatments that worked nearby", ML: "സമീപത്ത് ഫലിച്ച പരിചരണങ്ങൾ"},
			Description: domain.LocalizedText{
				EN: fmt.Sprintf("Neighbouring farms averaged %.1f fertilizer applications with effectiveness %.0f%%.", insight.Treatment.FertilizerApplications, insight.Treatment.EffectivenessScore*100),
				ML: fmt.Sprintf("അയൽ കൃഷിയിടങ്ങളിൽ ശരാശരി %.1f വളപ്രയോഗങ്ങൾ; ഫലപ്രാപ്തി %.0f%%.", insight.Treatment.FertilizerApplications, insight.Treatment.EffectivenessScore*100),
			},
			Timing:     "next application cycle",
			Confidence: insightConfidence,
			Explainability: explain(domain.LocalizedText{
				EN: fmt.Sprintf("Treatment effectiveness averaged across %d regional contributions.", insight.SampleSize),
				ML: fmt.Sprintf("%d പ്രാദേശിക സംഭാവനകളിൽ നിന്നുള്ള ശരാശരി ഫലപ്രാപ്തി.", insight.SampleSize),
			}),
		},
		{
			ID:       artifactID(twin.ID, "federated/risk"),
			Type:     domain.RecPreventive,
			Priority: domain.PriorityMedium,
			Title:    domain.LocalizedText{EN: "Common risks in your region", ML: "നിങ്ങളുടെ പ്രദേശത്തെ പൊതുവായ അപകടസാധ്യതകൾ"},
			Description: domain.LocalizedText{
				EN: fmt.Sprintf("Regional pest incidence averages %.0f/100. Prioritize preventive inspections.", insight.Risk.PestIncidence),
				ML: fmt.Sprintf("പ്രാദേശിക കീടബാധ ശരാശരി %.0f/100 ആണ്. പ്രതിരോധ പരിശോധനകൾക്ക് മുൻഗണന നൽകുക.", insight.Risk.PestIncidence),
			},
			Timing:     "ongoing",
			Confidence: insightConfidence,
			Explainability: explain(domain.LocalizedText{
				EN: fmt.Sprintf("Risk pattern aggregated from %d farms within your district and taluk.", insight.SampleSize),
				ML: fmt.Sprintf("നിങ്ങളുടെ ജില്ലയിലെയും താലൂക്കിലെയും %d കൃഷിയിടങ്ങളിൽ നിന്നുള്ള അപകടസാധ്യതാ രീതി.", insight.SampleSize),
			}),
		},
	}
}

// GlobalModel returns a copy of the current global model state
func (f *FederatedAggregator) GlobalModel() domain.GlobalModel {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.global
	out.Insights = make(map[string]domain.RegionalInsight, len(f.global.Insights))
	for k, v := range f.global.Insights {
		out.Insights[k] = v
	}
	return out
}

// TotalQueued reports queued-but-unaggregated updates across farmers
func (f *FederatedAggregator) TotalQueued() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totalQueuedLocked()
}
