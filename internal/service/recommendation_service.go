package service

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/krishisakhi/backend/internal/domain"
)

// Rule trigger thresholds. Each rule fires independently; absence of a
// trigger yields no recommendation, never an error.
const (
	pestRiskThreshold     = 30.0
	pestCriticalThreshold = 70.0
	irrigationThreshold   = 30.0
	irrigationCritical    = 15.0
	nutrientThreshold     = 40.0
	communityPestMinCount = 2 // fires on strictly more
	communityPestMinConf  = 0.7
)

type fertilizerSpec struct {
	name     string
	nameML   string
	amountKg float64 // per acre
	costINR  float64
}

// fertilizerByStage selects fertilizer type and dose for the nutrient
// rule, keyed on the current growth stage.
var fertilizerByStage = map[domain.StageName]fertilizerSpec{
	domain.StageGermination: {"diluted starter NPK", "നേർപ്പിച്ച സ്റ്റാർട്ടർ എൻപികെ", 10, 400},
	domain.StageVegetative:  {"balanced NPK 18:18:18", "സമീകൃത എൻപികെ 18:18:18", 25, 900},
	domain.StageFlowering:   {"phosphorus-rich mix", "ഫോസ്ഫറസ് സമ്പുഷ്ട മിശ്രിതം", 20, 850},
	domain.StageFruiting:    {"potassium-rich mix", "പൊട്ടാസ്യം സമ്പുഷ്ട മിശ്രിതം", 20, 850},
	domain.StageMaturity:    {"potassium sulfate", "പൊട്ടാസ്യം സൾഫേറ്റ്", 15, 700},
}

// derivedAt anchors every time-derived field of generated output to
// the twin's last assessment, so re-reading unchanged twin state
// yields identical recommendations and alerts.
func derivedAt(twin *domain.CropTwin) time.Time {
	if !twin.Risk.AssessedAt.IsZero() {
		return twin.Risk.AssessedAt
	}
	if !twin.CreatedAt.IsZero() {
		return twin.CreatedAt
	}
	return time.Now()
}

// artifactID builds a stable id for a derived artifact from the twin
// id and the producing rule.
func artifactID(twinID, rule string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(twinID+"/"+rule)).String()
}

// RecommendationService generates prioritized, explainable guidance
// from a twin snapshot. Generate is pure and total.
type RecommendationService struct{}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService() *RecommendationService {
	return &RecommendationService{}
}

// Generate evaluates every rule independently and returns the result
// stable-sorted by descending priority. A failing rule degrades to no
// output for that rule only.
func (s *RecommendationService) Generate(twin *domain.CropTwin) []domain.Recommendation {
	recs := make([]domain.Recommendation, 0, 8)

	collect := func(name string, fn func() []domain.Recommendation) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("recommendation rule %s failed: %v", name, r)
			}
		}()
		recs = append(recs, fn()...)
	}

	collect("pest", func() []domain.Recommendation { return asList(s.pestRecommendation(twin)) })
	collect("irrigation", func() []domain.Recommendation { return asList(s.irrigationRecommendation(twin)) })
	collect("nutrient", func() []domain.Recommendation { return asList(s.nutrientRecommendation(twin)) })
	collect("weather", func() []domain.Recommendation { return s.weatherRecommendations(twin) })
	collect("harvest", func() []domain.Recommendation { return asList(s.harvestRecommendation(twin)) })
	collect("community_pest", func() []domain.Recommendation { return asList(s.communityPestRecommendation(twin)) })

	// stable: ties keep encounter order for deterministic output
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() > recs[j].Priority.Rank()
	})
	return recs
}

func asList(r *domain.Recommendation) []domain.Recommendation {
	if r == nil {
		return nil
	}
	return []domain.Recommendation{*r}
}

func (s *RecommendationService) pestRecommendation(twin *domain.CropTwin) *domain.Recommendation {
	pest := twin.Risk.Breakdown.Pest
	if pest <= pestRiskThreshold {
		return nil
	}

	priority := domain.PriorityHigh
	if pest > pestCriticalThreshold {
		priority = domain.PriorityCritical
	}

	now := derivedAt(twin)
	return &domain.Recommendation{
		ID:       artifactID(twin.ID, "rec/pest"),
		Type:     domain.RecPreventive,
		Priority: priority,
		Title: domain.LocalizedText{
			EN: "Pest management required",
			ML: "കീടനിയന്ത്രണം ആവശ്യമാണ്",
		},
		Description: domain.LocalizedText{
			EN: fmt.Sprintf("Elevated pest risk detected for %s. Inspect the field and apply organic treatment.", twin.Crop.Name),
			ML: fmt.Sprintf("%s-ൽ ഉയർന്ന കീടസാധ്യത കണ്ടെത്തി. വയൽ പരിശോധിച്ച് ജൈവ ചികിത്സ നടത്തുക.", twin.Crop.LocalName),
		},
		Actions: []domain.ActionItem{
			{
				Task: domain.LocalizedText{
					EN: "Inspect leaves and stems for pest damage",
					ML: "ഇലകളും തണ്ടുകളും കീടബാധയുണ്ടോയെന്ന് പരിശോധിക്കുക",
				},
				DueDate:       now.Add(4 * time.Hour),
				EstimatedCost: 0,
				DurationHours: 1,
				Difficulty:    "easy",
			},
			{
				Task: domain.LocalizedText{
					EN: "Apply neem-based organic pest treatment",
					ML: "വേപ്പ് അധിഷ്ഠിത ജൈവ കീടനാശിനി പ്രയോഗിക്കുക",
				},
				DueDate:       now.Add(24 * time.Hour),
				Materials:     []string{"neem oil", "sprayer"},
				EstimatedCost: 500,
				DurationHours: 2,
				Difficulty:    "moderate",
			},
		},
		Timing:     "within 24 hours",
		Confidence: 0.85,
		Explainability: domain.Explainability{
			Reasoning: domain.LocalizedText{
				EN: fmt.Sprintf("Pest risk score is %.0f/100, above the %.0f treatment threshold for the current %s stage.", pest, pestRiskThreshold, twin.Crop.Stage.Name),
				ML: fmt.Sprintf("കീടസാധ്യത സ്കോർ %.0f/100 ആണ്, നിലവിലെ വളർച്ചാ ഘട്ടത്തിലെ പരിധിയായ %.0f-ന് മുകളിൽ.", pest, pestRiskThreshold),
			},
			DataSources: []string{"weather_conditions", "crop_stage", "community_reports", "historical_patterns"},
			Confidence:  0.85,
			Alternatives: []domain.Alternative{
				{
					Option: domain.LocalizedText{EN: "Chemical pesticide", ML: "രാസ കീടനാശിനി"},
					Pros: []domain.LocalizedText{
						{EN: "Fast acting", ML: "വേഗത്തിൽ ഫലം"},
					},
					Cons: []domain.LocalizedText{
						{EN: "Residue concerns and higher cost", ML: "അവശിഷ്ട പ്രശ്നങ്ങളും കൂടിയ ചെലവും"},
					},
				},
				{
					Option: domain.LocalizedText{EN: "Pheromone traps", ML: "ഫിറമോൺ കെണികൾ"},
					Pros: []domain.LocalizedText{
						{EN: "No chemicals, targets adults", ML: "രാസവസ്തുക്കളില്ല, മുതിർന്ന കീടങ്ങളെ ലക്ഷ്യം വയ്ക്കുന്നു"},
					},
					Cons: []domain.LocalizedText{
						{EN: "Slower, needs monitoring", ML: "മന്ദഗതിയിൽ, നിരീക്ഷണം ആവശ്യം"},
					},
				},
			},
		},
	}
}

func (s *RecommendationService) irrigationRecommendation(twin *domain.CropTwin) *domain.Recommendation {
	reading, ok := twin.LatestReading()
	if !ok || reading.SoilMoisture >= irrigationThreshold {
		return nil
	}

	priority := domain.PriorityHigh
	urgency := "scheduled"
	due := 6 * time.Hour
	if reading.SoilMoisture < irrigationCritical {
		priority = domain.PriorityCritical
		urgency = "emergency"
		due = 2 * time.Hour
	}

	now := derivedAt(twin)
	return &domain.Recommendation{
		ID:       artifactID(twin.ID, "rec/irrigation"),
		Type:     domain.RecCorrective,
		Priority: priority,
		Title: domain.LocalizedText{
			EN: "Irrigation needed",
			ML: "ജലസേചനം ആവശ്യമാണ്",
		},
		Description: domain.LocalizedText{
			EN: fmt.Sprintf("Soil moisture is %.0f%%, below the %.0f%% minimum. %s irrigation recommended.", reading.SoilMoisture, irrigationThreshold, urgency),
			ML: fmt.Sprintf("മണ്ണിലെ ഈർപ്പം %.0f%% ആണ്, കുറഞ്ഞ പരിധിയായ %.0f%%-ന് താഴെ. ഉടൻ ജലസേചനം നടത്തുക.", reading.SoilMoisture, irrigationThreshold),
		},
		Actions: []domain.ActionItem{
			{
				Task: domain.LocalizedText{
					EN: "Irrigate the field",
					ML: "വയലിൽ ജലസേചനം നടത്തുക",
				},
				DueDate:       now.Add(due),
				Materials:     []string{"pump", "hose"},
				EstimatedCost: 200,
				DurationHours: durationForUrgency(urgency),
				Difficulty:    "easy",
			},
		},
		Timing:     fmt.Sprintf("within %d hours", int(due.Hours())),
		Confidence: 0.9,
		Explainability: domain.Explainability{
			Reasoning: domain.LocalizedText{
				EN: fmt.Sprintf("Latest sensor reading shows %.0f%% soil moisture; the crop needs at least %.0f%%.", reading.SoilMoisture, irrigationThreshold),
				ML: fmt.Sprintf("ഏറ്റവും പുതിയ സെൻസർ വായന %.0f%% മണ്ണിലെ ഈർപ്പം കാണിക്കുന്നു; വിളയ്ക്ക് കുറഞ്ഞത് %.0f%% ആവശ്യമാണ്.", reading.SoilMoisture, irrigationThreshold),
			},
			DataSources:  []string{"soil_moisture_sensor", "crop_water_requirements"},
			Confidence:   0.9,
			Alternatives: []domain.Alternative{},
		},
	}
}

func durationForUrgency(urgency string) float64 {
	if urgency == "emergency" {
		return 3
	}
	return 2
}

func (s *RecommendationService) nutrientRecommendation(twin *domain.CropTwin) *domain.Recommendation {
	nutrient := twin.Risk.Breakdown.Nutrient
	if nutrient <= nutrientThreshold {
		return nil
	}

	spec, ok := fertilizerByStage[twin.Crop.Stage.Name]
	if !ok {
		spec = fertilizerByStage[domain.StageVegetative]
	}

	now := derivedAt(twin)
	return &domain.Recommendation{
		ID:       artifactID(twin.ID, "rec/nutrient"),
		Type:     domain.RecCorrective,
		Priority: domain.PriorityMedium,
		Title: domain.LocalizedText{
			EN: "Fertilizer application due",
			ML: "വളപ്രയോഗം ആവശ്യമാണ്",
		},
		Description: domain.LocalizedText{
			EN: fmt.Sprintf("Nutrient risk is %.0f/100. Apply %s suited to the %s stage.", nutrient, spec.name, twin.Crop.Stage.Name),
			ML: fmt.Sprintf("പോഷക സാധ്യത %.0f/100 ആണ്. ഈ ഘട്ടത്തിന് അനുയോജ്യമായ %s പ്രയോഗിക്കുക.", nutrient, spec.nameML),
		},
		Actions: []domain.ActionItem{
			{
				Task: domain.LocalizedText{
					EN: fmt.Sprintf("Apply %.0f kg/acre of %s", spec.amountKg, spec.name),
					ML: fmt.Sprintf("ഏക്കറിന് %.0f കിലോ %s പ്രയോഗിക്കുക", spec.amountKg, spec.nameML),
				},
				DueDate:       now.Add(3 * 24 * time.Hour),
				Materials:     []string{spec.name, "spreader"},
				EstimatedCost: spec.costINR,
				DurationHours: 3,
				Difficulty:    "moderate",
			},
		},
		Timing:     "within 3-5 days",
		Confidence: 0.8,
		Explainability: domain.Explainability{
			Reasoning: domain.LocalizedText{
				EN: fmt.Sprintf("Nutrient risk of %.0f exceeds the %.0f threshold; the %s stage calls for %s.", nutrient, nutrientThreshold, twin.Crop.Stage.Name, spec.name),
				ML: fmt.Sprintf("പോഷക സാധ്യത %.0f പരിധിയായ %.0f കവിഞ്ഞു; ഈ വളർച്ചാ ഘട്ടത്തിന് %s ആവശ്യമാണ്.", nutrient, nutrientThreshold, spec.nameML),
			},
			DataSources:  []string{"soil_ph_sensor", "crop_stage", "fertilizer_schedule"},
			Confidence:   0.8,
			Alternatives: []domain.Alternative{},
		},
	}
}

// actionItems per weather alert type; unrecognized types still emit a
// recommendation, just without actions.
func weatherActions(alert domain.WeatherAlert, now time.Time) []domain.ActionItem {
	switch alert.Type {
	case domain.WeatherHeavyRain:
		return []domain.ActionItem{
			{
				Task: domain.LocalizedText{
					EN: "Improve field drainage channels",
					ML: "വയലിലെ നീർവാർച്ചാ ചാലുകൾ മെച്ചപ്പെടുത്തുക",
				},
				DueDate:       now.Add(12 * time.Hour),
				Materials:     []string{"spade", "sandbags"},
				EstimatedCost: 300,
				DurationHours: 4,
				Difficulty:    "moderate",
			},
		}
	case domain.WeatherDrought:
		return []domain.ActionItem{
			{
				Task: domain.LocalizedText{
					EN: "Install mulching and drip water conservation",
					ML: "പുതയിടലും തുള്ളിനന ജലസംരക്ഷണവും ഒരുക്കുക",
				},
				DueDate:       now.Add(24 * time.Hour),
				Materials:     []string{"mulch", "drip lines"},
				EstimatedCost: 1200,
				DurationHours: 6,
				Difficulty:    "hard",
			},
		}
	default:
		return nil
	}
}

func (s *RecommendationService) weatherRecommendations(twin *domain.CropTwin) []domain.Recommendation {
	if len(twin.Weather.Alerts) == 0 {
		return nil
	}

	now := derivedAt(twin)
	out := make([]domain.Recommendation, 0, len(twin.Weather.Alerts))
	for _, alert := range twin.Weather.Alerts {
		priority := domain.PriorityHigh
		if alert.Severity == domain.WeatherSeverityAlert {
			priority = domain.PriorityCritical
		}

		out = append(out, domain.Recommendation{
			ID:       artifactID(twin.ID, "rec/weather/"+string(alert.Type)),
			Type:     domain.RecPreventive,
			Priority: priority,
			Title: domain.LocalizedText{
				EN: "Weather protection needed",
				ML: "കാലാവസ്ഥാ സംരക്ഷണം ആവശ്യമാണ്",
			},
			Description: domain.LocalizedText{
				EN: fmt.Sprintf("Active %s %s for your area. Protect the field before conditions worsen.", alert.Type, alert.Severity),
				ML: fmt.Sprintf("നിങ്ങളുടെ പ്രദേശത്ത് %s മുന്നറിയിപ്പ് നിലവിലുണ്ട്. സ്ഥിതി വഷളാകും മുമ്പ് വയൽ സംരക്ഷിക്കുക.", weatherTypeML(alert.Type)),
			},
			Actions:    weatherActions(alert, now),
			Timing:     fmt.Sprintf("before %s", alert.ValidUntil.Format("Jan 2 15:04")),
			Confidence: 0.88,
			Explainability: domain.Explainability{
				Reasoning: domain.LocalizedText{
					EN: fmt.Sprintf("The weather service issued a %s-severity %s alert valid until %s.", alert.Severity, alert.Type, alert.ValidUntil.Format("Jan 2")),
					ML: fmt.Sprintf("കാലാവസ്ഥാ വിഭാഗം %s മുന്നറിയിപ്പ് പുറപ്പെടുവിച്ചിട്ടുണ്ട്.", weatherTypeML(alert.Type)),
				},
				DataSources:  []string{"weather_alerts", "field_location"},
				Confidence:   0.88,
				Alternatives: []domain.Alternative{},
			},
		})
	}
	return out
}

func weatherTypeML(t domain.WeatherAlertType) string {
	switch t {
	case domain.WeatherHeavyRain:
		return "കനത്ത മഴ"
	case domain.WeatherDrought:
		return "വരൾച്ച"
	case domain.WeatherCyclone:
		return "ചുഴലിക്കാറ്റ്"
	case domain.WeatherHeatWave:
		return "ഉഷ്ണതരംഗം"
	default:
		return string(t)
	}
}

func (s *RecommendationService) harvestRecommendation(twin *domain.CropTwin) *domain.Recommendation {
	if twin.Crop.Stage.Name != domain.StageMaturity {
		return nil
	}

	daysToOptimal := 7
	if len(twin.Weather.Forecast) > 0 {
		daysToOptimal -= 2
	}
	if daysToOptimal < 1 {
		daysToOptimal = 1
	}

	prepDays := daysToOptimal - 2
	if prepDays < 0 {
		prepDays = 0
	}

	now := derivedAt(twin)
	return &domain.Recommendation{
		ID:       artifactID(twin.ID, "rec/harvest"),
		Type:     domain.RecAdvisory,
		Priority: domain.PriorityMedium,
		Title: domain.LocalizedText{
			EN: "Plan your harvest",
			ML: "വിളവെടുപ്പ് ആസൂത്രണം ചെയ്യുക",
		},
		Description: domain.LocalizedText{
			EN: fmt.Sprintf("Crop is at maturity. Optimal harvest window opens in about %d day(s).", daysToOptimal),
			ML: fmt.Sprintf("വിള മൂപ്പെത്തിയിരിക്കുന്നു. ഏകദേശം %d ദിവസത്തിനുള്ളിൽ അനുയോജ്യമായ വിളവെടുപ്പ് സമയം.", daysToOptimal),
		},
		Actions: []domain.ActionItem{
			{
				Task: domain.LocalizedText{
					EN: "Prepare harvest equipment and storage",
					ML: "വിളവെടുപ്പ് ഉപകരണങ്ങളും സംഭരണവും തയ്യാറാക്കുക",
				},
				DueDate:       now.Add(time.Duration(prepDays) * 24 * time.Hour),
				Materials:     []string{"sickle", "sacks", "tarpaulin"},
				EstimatedCost: 400,
				DurationHours: 4,
				Difficulty:    "easy",
			},
		},
		Timing:     fmt.Sprintf("in %d days", daysToOptimal),
		Confidence: 0.75,
		Explainability: domain.Explainability{
			Reasoning: domain.LocalizedText{
				EN: fmt.Sprintf("Stage is maturity and the forecast narrows the optimal window to %d day(s).", daysToOptimal),
				ML: fmt.Sprintf("വിള മൂപ്പെത്തി; കാലാവസ്ഥാ പ്രവചനം അനുസരിച്ച് %d ദിവസത്തിനുള്ളിൽ വിളവെടുക്കുന്നതാണ് നല്ലത്.", daysToOptimal),
			},
			DataSources:  []string{"crop_stage", "weather_forecast"},
			Confidence:   0.75,
			Alternatives: []domain.Alternative{},
		},
	}
}

func (s *RecommendationService) communityPestRecommendation(twin *domain.CropTwin) *domain.Recommendation {
	count := 0
	for _, sig := range twin.CommunitySignals {
		if sig.Type == domain.SignalPestSighting && sig.Confidence > communityPestMinConf {
			count++
		}
	}
	if count <= communityPestMinCount {
		return nil
	}

	now := derivedAt(twin)
	return &domain.Recommendation{
		ID:       artifactID(twin.ID, "rec/community_pest"),
		Type:     domain.RecPreventive,
		Priority: domain.PriorityHigh,
		Title: domain.LocalizedText{
			EN: "Pest activity reported nearby",
			ML: "സമീപത്ത് കീടബാധ റിപ്പോർട്ട് ചെയ്തിരിക്കുന്നു",
		},
		Description: domain.LocalizedText{
			EN: fmt.Sprintf("%d farmers nearby reported pest sightings. Take preventive action before it spreads.", count),
			ML: fmt.Sprintf("സമീപത്തെ %d കർഷകർ കീടബാധ റിപ്പോർട്ട് ചെയ്തു. പടരും മുമ്പ് പ്രതിരോധ നടപടി സ്വീകരിക്കുക.", count),
		},
		Actions: []domain.ActionItem{
			{
				Task: domain.LocalizedText{
					EN: "Apply preventive organic spray and monitor daily",
					ML: "പ്രതിരോധ ജൈവ സ്പ്രേ പ്രയോഗിച്ച് ദിവസവും നിരീക്ഷിക്കുക",
				},
				DueDate:       now.Add(48 * time.Hour),
				Materials:     []string{"neem oil", "sprayer"},
				EstimatedCost: 350,
				DurationHours: 2,
				Difficulty:    "easy",
			},
		},
		Timing:     "within 48 hours",
		Confidence: 0.8,
		Explainability: domain.Explainability{
			Reasoning: domain.LocalizedText{
				EN: fmt.Sprintf("%d high-confidence pest sightings were reported within your area in recent days.", count),
				ML: fmt.Sprintf("സമീപ ദിവസങ്ങളിൽ നിങ്ങളുടെ പ്രദേശത്ത് %d വിശ്വസനീയ കീട റിപ്പോർട്ടുകൾ ലഭിച്ചു.", count),
			},
			DataSources:  []string{"community_reports", "field_location"},
			Confidence:   0.8,
			Alternatives: []domain.Alternative{},
		},
	}
}
