package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/krishisakhi/backend/internal/domain"
	"github.com/krishisakhi/backend/pkg/utils"
)

// Engine policy constants. The blend weights and banding thresholds
// are fixed policy, not per-crop configuration.
const (
	initialHealthScore      = 85.0
	communityIngestRadiusKm = 5.0 // inclusive
	twinRecomputeInterval   = 5 * time.Minute
	sweepInterval           = 15 * time.Minute
	sweepTaskID             = "global_sweep"

	// health score blend
	healthWeightRisk      = 0.4
	healthWeightSensor    = 0.4
	healthWeightCommunity = 0.2

	// neutral defaults when a component has no data
	defaultSensorHealth = 75.0
	baseCommunityImpact = 85.0
	recentImpactWindow  = 7 * 24 * time.Hour

	// sensor health bands: outer band penalties are heavier
	moistureOuterLow, moistureOuterHigh = 20.0, 80.0
	moistureInnerLow, moistureInnerHigh = 30.0, 70.0
	phOuterLow, phOuterHigh             = 5.5, 8.0
	phInnerLow, phInnerHigh             = 6.0, 7.5
	tempLow, tempHigh                   = 10.0, 40.0
)

// TwinEngine owns the registry of live crop twins. It is the only
// holder of twin references: every mutation goes through the engine's
// mutex, which serializes user-triggered updates against the periodic
// timers. Getters return snapshot copies.
type TwinEngine struct {
	mu    sync.Mutex
	twins map[string]*domain.CropTwin

	risk      *RiskAssessor
	recs      *RecommendationService
	alerts    *AlertService
	federated *FederatedAggregator
	weather   WeatherProvider
	repo      domain.DataRepository
	sched     *Scheduler

	wgBg sync.WaitGroup // tracks background persistence for graceful shutdown
}

// NewTwinEngine wires the engine with its collaborators and starts the
// global recomputation sweep.
func NewTwinEngine(
	risk *RiskAssessor,
	recs *RecommendationService,
	alerts *AlertService,
	federated *FederatedAggregator,
	weather WeatherProvider,
	repo domain.DataRepository,
) *TwinEngine {
	e := &TwinEngine{
		twins:     make(map[string]*domain.CropTwin),
		risk:      risk,
		recs:      recs,
		alerts:    alerts,
		federated: federated,
		weather:   weather,
		repo:      repo,
		sched:     NewScheduler(),
	}
	e.sched.Schedule(sweepTaskID, sweepInterval, e.Sweep)
	return e
}

// CreateCropTwin allocates and registers a fresh twin for one planting
// and starts its periodic recomputation task.
func (e *TwinEngine) CreateCropTwin(ctx context.Context, farmerID string, profile domain.FarmerProfile, crop domain.CropData) (domain.CropTwin, error) {
	now := time.Now()
	if crop.Type == "" {
		crop.Type = domain.NormalizeCropType(crop.Name)
	}
	if crop.Stage.Name == "" {
		crop.Stage.Name = domain.StageGermination
	}
	crop.Stage.DaysSincePlanting = crop.DaysFromPlanting(now)
	crop.Stage.HealthScore = initialHealthScore

	id := fmt.Sprintf("%s_%s_%d", farmerID, crop.ID, now.UnixMilli())

	twin := &domain.CropTwin{
		ID:          id,
		FarmerID:    farmerID,
		Profile:     profile,
		Crop:        crop,
		HealthScore: initialHealthScore,
		Learning: domain.FederatedLearningModel{
			ModelVersion:  e.federated.GlobalModel().Version,
			LastUpdate:    now,
			LocalAccuracy: 0.5,
			PrivacyLevel:  domain.PrivacyHigh,
		},
		CreatedAt: now,
	}

	twin.Risk = e.risk.Assess(twin.Crop, nil, nil)
	if w, err := e.weather.Fetch(ctx, crop.FieldLocation); err == nil {
		twin.Weather = w
	} else {
		log.Printf("twin %s: initial weather fetch failed: %v", id, err)
	}
	twin.Recommendations = e.recs.Generate(twin)

	e.mu.Lock()
	e.twins[id] = twin
	snap := snapshotTwin(twin)
	e.mu.Unlock()

	e.sched.Schedule(id, twinRecomputeInterval, func() { e.Tick(id) })
	e.persistSnapshot(snap)

	return snap, nil
}

// UpdateSensorData appends a reading to the bounded series and runs a
// full recomputation pass.
func (e *TwinEngine) UpdateSensorData(ctx context.Context, twinID string, reading domain.SensorReading) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	twin, ok := e.twins[twinID]
	if !ok {
		return domain.ErrTwinNotFound
	}
	twin.SensorHistory = appendBounded(twin.SensorHistory, reading)
	e.recomputeLocked(twin)
	return nil
}

// UpdateCommunitySignal attaches a signal when it lies within the
// ingestion radius of the twin's field; signals outside are silently
// ignored by design.
func (e *TwinEngine) UpdateCommunitySignal(ctx context.Context, twinID string, signal domain.CommunitySignal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	twin, ok := e.twins[twinID]
	if !ok {
		return domain.ErrTwinNotFound
	}

	field := twin.Crop.FieldLocation
	d := utils.Haversine(field.Latitude, field.Longitude, signal.Location.Latitude, signal.Location.Longitude)
	if d > communityIngestRadiusKm {
		return nil
	}

	twin.CommunitySignals = append(twin.CommunitySignals, signal)
	e.recomputeLocked(twin)
	return nil
}

// RecordActivity appends to the activity log and recomputes, which
// also feeds the federated aggregator.
func (e *TwinEngine) RecordActivity(ctx context.Context, twinID string, activity domain.Activity) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	twin, ok := e.twins[twinID]
	if !ok {
		return domain.ErrTwinNotFound
	}
	twin.Activities = append(twin.Activities, activity)
	e.recomputeLocked(twin)
	return nil
}

// GetProactiveRecommendations re-derives recommendations from current
// twin state on every call; nothing is cached.
func (e *TwinEngine) GetProactiveRecommendations(twinID string) ([]domain.Recommendation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	twin, ok := e.twins[twinID]
	if !ok {
		return nil, domain.ErrTwinNotFound
	}
	return e.recs.Generate(twin), nil
}

// GetProactiveAlerts re-derives alerts from current twin state and
// logs the batch for audit.
func (e *TwinEngine) GetProactiveAlerts(twinID string) ([]domain.ProactiveAlert, error) {
	e.mu.Lock()
	twin, ok := e.twins[twinID]
	if !ok {
		e.mu.Unlock()
		return nil, domain.ErrTwinNotFound
	}
	alerts := e.alerts.Generate(twin)
	e.mu.Unlock()

	e.wgBg.Add(1)
	go func() {
		defer e.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.repo.SaveAlertLog(bgCtx, twinID, alerts); err != nil {
			log.Printf("twin %s: failed to save alert log: %v", twinID, err)
		}
	}()
	return alerts, nil
}

// GetPersonalizedRecommendations answers from the federated model's
// regional insights; an unknown region yields an empty list.
func (e *TwinEngine) GetPersonalizedRecommendations(twinID string) ([]domain.Recommendation, error) {
	e.mu.Lock()
	twin, ok := e.twins[twinID]
	if !ok {
		e.mu.Unlock()
		return nil, domain.ErrTwinNotFound
	}
	snap := snapshotTwin(twin)
	e.mu.Unlock()

	return e.federated.PersonalizedRecommendations(&snap), nil
}

// GetCropTwin returns a snapshot copy of the twin
func (e *TwinEngine) GetCropTwin(twinID string) (domain.CropTwin, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	twin, ok := e.twins[twinID]
	if !ok {
		return domain.CropTwin{}, domain.ErrTwinNotFound
	}
	return snapshotTwin(twin), nil
}

// GetFarmerCropTwins returns snapshots of all twins owned by a farmer
func (e *TwinEngine) GetFarmerCropTwins(farmerID string) []domain.CropTwin {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.CropTwin, 0, 2)
	for _, twin := range e.twins {
		if twin.FarmerID == farmerID {
			out = append(out, snapshotTwin(twin))
		}
	}
	return out
}

// Tick runs one recomputation pass for a twin. Called by the per-twin
// timer and exposed for tests. A missing id means the twin was already
// disposed; that is not an error.
func (e *TwinEngine) Tick(twinID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	twin, ok := e.twins[twinID]
	if !ok {
		return
	}
	e.recomputeLocked(twin)
}

// Sweep recomputes every registered twin. Called by the global timer
// and exposed for tests.
func (e *TwinEngine) Sweep() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, twin := range e.twins {
		e.recomputeLocked(twin)
	}
}

// Dispose cancels all timers and clears the registry. Required for
// clean shutdown and leak-free tests.
func (e *TwinEngine) Dispose() {
	e.sched.StopAll()

	e.mu.Lock()
	e.twins = make(map[string]*domain.CropTwin)
	e.mu.Unlock()
}

// WaitBackground blocks until all background save goroutines complete.
// Call during graceful shutdown to avoid dropped writes.
func (e *TwinEngine) WaitBackground() {
	e.wgBg.Wait()
}

// recomputeLocked runs the full derivation pass. Caller holds e.mu.
// The weather round trip runs off the lock so one slow provider call
// never stalls mutations on other twins; the refreshed snapshot is
// picked up by the next pass.
func (e *TwinEngine) recomputeLocked(twin *domain.CropTwin) {
	now := time.Now()

	twin.Risk = e.risk.Assess(twin.Crop, twin.SensorHistory, twin.CommunitySignals)
	twin.HealthScore = e.healthScore(twin, now)
	twin.Crop.Stage.DaysSincePlanting = twin.Crop.DaysFromPlanting(now)
	twin.Crop.Stage.HealthScore = twin.HealthScore
	twin.Recommendations = e.recs.Generate(twin)

	e.refreshWeather(twin.ID, twin.Crop.FieldLocation)

	aggregated := e.federated.SubmitUpdate(twin)
	twin.Learning.DataPoints++
	twin.Learning.LastUpdate = now
	twin.Learning.ModelVersion = e.federated.GlobalModel().Version

	snap := snapshotTwin(twin)
	e.persistSnapshot(snap)
	if aggregated {
		e.persistGlobalModel()
	}
}

// healthScore blends the risk complement, sensor-derived health and
// community impact with fixed weights.
func (e *TwinEngine) healthScore(twin *domain.CropTwin, now time.Time) float64 {
	riskMean, err := stats.Mean(twin.Risk.Breakdown.Categories())
	if err != nil {
		riskMean = neutralRisk
	}

	blended := healthWeightRisk*(100-riskMean) +
		healthWeightSensor*sensorHealth(twin.SensorHistory) +
		healthWeightCommunity*communityImpact(twin.CommunitySignals, now)

	return utils.RoundTo(utils.ClampScore(blended), 2)
}

// refreshWeather fetches the provider snapshot in a tracked background
// goroutine and applies it to the twin if it still exists. Provider
// errors keep the previous snapshot; weather is advisory input.
func (e *TwinEngine) refreshWeather(twinID string, loc domain.Location) {
	e.wgBg.Add(1)
	go func() {
		defer e.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		w, err := e.weather.Fetch(bgCtx, loc)
		if err != nil {
			log.Printf("twin %s: weather refresh failed: %v", twinID, err)
			return
		}
		e.mu.Lock()
		if twin, ok := e.twins[twinID]; ok {
			twin.Weather = w
		}
		e.mu.Unlock()
	}()
}

// sensorHealth scores the latest reading against the agronomic bands;
// outer-band violations cost more than inner-band drift.
func sensorHealth(history []domain.SensorReading) float64 {
	r, ok := latestReading(history)
	if !ok {
		return defaultSensorHealth
	}

	h := 100.0
	switch {
	case r.SoilMoisture < moistureOuterLow || r.SoilMoisture > moistureOuterHigh:
		h -= 25
	case r.SoilMoisture < moistureInnerLow || r.SoilMoisture > moistureInnerHigh:
		h -= 10
	}
	switch {
	case r.SoilPH < phOuterLow || r.SoilPH > phOuterHigh:
		h -= 20
	case r.SoilPH < phInnerLow || r.SoilPH > phInnerHigh:
		h -= 8
	}
	if r.Temperature < tempLow || r.Temperature > tempHigh {
		h -= 15
	}
	return utils.ClampScore(h)
}

// communityImpact adjusts a neutral base by recent nearby reports
func communityImpact(signals []domain.CommunitySignal, now time.Time) float64 {
	score := baseCommunityImpact
	for _, s := range signals {
		if now.Sub(s.Timestamp) > recentImpactWindow {
			continue
		}
		switch s.Type {
		case domain.SignalPestSighting, domain.SignalDiseaseOutbreak:
			score -= s.Confidence * 10
		case domain.SignalGoodYield:
			score += s.Confidence * 5
		}
	}
	return utils.ClampScore(score)
}

// appendBounded keeps the series chronological and capped, evicting
// the oldest reading first.
func appendBounded(history []domain.SensorReading, r domain.SensorReading) []domain.SensorReading {
	if len(history) >= domain.MaxSensorHistory {
		history = append(history[:0], history[len(history)-domain.MaxSensorHistory+1:]...)
	}
	return append(history, r)
}

// snapshotTwin deep-copies the slices so callers never share backing
// arrays with the engine-owned twin.
func snapshotTwin(twin *domain.CropTwin) domain.CropTwin {
	out := *twin
	out.SensorHistory = append([]domain.SensorReading(nil), twin.SensorHistory...)
	out.CommunitySignals = append([]domain.CommunitySignal(nil), twin.CommunitySignals...)
	out.Recommendations = append([]domain.Recommendation(nil), twin.Recommendations...)
	out.Activities = append([]domain.Activity(nil), twin.Activities...)
	return out
}

func (e *TwinEngine) persistSnapshot(snap domain.CropTwin) {
	e.wgBg.Add(1)
	go func() {
		defer e.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.repo.SaveTwinSnapshot(bgCtx, snap); err != nil {
			log.Printf("twin %s: failed to save snapshot: %v", snap.ID, err)
		}
	}()
}

func (e *TwinEngine) persistGlobalModel() {
	model := e.federated.GlobalModel()
	e.wgBg.Add(1)
	go func() {
		defer e.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.repo.SaveGlobalModel(bgCtx, model); err != nil {
			log.Printf("failed to save global model %s: %v", model.Version, err)
		}
	}()
}
