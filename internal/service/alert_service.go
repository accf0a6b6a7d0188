package service

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/krishisakhi/backend/internal/domain"
	"github.com/krishisakhi/backend/pkg/utils"
)

// Alert rule thresholds
const (
	overallRiskAlertThreshold = 70.0
	pestAlertThreshold        = 60.0
	pestConfirmRadiusKm       = 2.0
	waterStressThreshold      = 20.0
	waterloggingThreshold     = 90.0
	stageTransitionTolerance  = 2 // days
	fertilizerDefaultInterval = 21 * 24 * time.Hour
	equipmentPesticideCount   = 5 // fires on strictly more
	equipmentWindow           = 30 * 24 * time.Hour
	diseaseScanRadiusKm       = 10.0
	diseaseScanWindow         = 14 * 24 * time.Hour
	diseaseMinOutbreaks       = 3 // fires on strictly more
	harvestReadyThreshold     = 80.0
)

type stageTransition struct {
	expectedDay int
	next        domain.StageName
}

// stageScheduleByCrop drives the upcoming-transition forecast. Crops
// without a table produce no stage alerts.
var stageScheduleByCrop = map[domain.CropType][]stageTransition{
	domain.CropRice: {
		{12, domain.StageVegetative},
		{50, domain.StageFlowering},
		{80, domain.StageFruiting},
		{110, domain.StageMaturity},
	},
	domain.CropCoconut: {
		{90, domain.StageVegetative},
		{300, domain.StageFlowering},
		{540, domain.StageFruiting},
		{720, domain.StageMaturity},
	},
	domain.CropBanana: {
		{14, domain.StageVegetative},
		{180, domain.StageFlowering},
		{270, domain.StageFruiting},
		{330, domain.StageMaturity},
	},
	domain.CropPepper: {
		{21, domain.StageVegetative},
		{150, domain.StageFlowering},
		{210, domain.StageFruiting},
		{270, domain.StageMaturity},
	},
	domain.CropVegetable: {
		{7, domain.StageVegetative},
		{35, domain.StageFlowering},
		{55, domain.StageFruiting},
		{75, domain.StageMaturity},
	},
}

// optimalHarvestDayByCrop feeds the harvest-readiness timing bonus
var optimalHarvestDayByCrop = map[domain.CropType]int{
	domain.CropRice:      115,
	domain.CropCoconut:   730,
	domain.CropBanana:    340,
	domain.CropPepper:    280,
	domain.CropVegetable: 80,
}

// fertilizerIntervalByCrop overrides the default 21-day reminder
// interval for crops with known schedules.
var fertilizerIntervalByCrop = map[domain.CropType]map[domain.StageName]time.Duration{
	domain.CropRice: {
		domain.StageVegetative: 15 * 24 * time.Hour,
		domain.StageFlowering:  20 * 24 * time.Hour,
	},
	domain.CropBanana: {
		domain.StageVegetative: 30 * 24 * time.Hour,
		domain.StageFruiting:   25 * 24 * time.Hour,
	},
	domain.CropVegetable: {
		domain.StageVegetative: 14 * 24 * time.Hour,
		domain.StageFlowering:  14 * 24 * time.Hour,
	},
}

// AlertService derives proactive alerts from a twin snapshot.
// Generate is pure and total; each rule is isolated so one bad input
// degrades one signal, not the whole pass.
type AlertService struct{}

// NewAlertService creates a new alert service
func NewAlertService() *AlertService {
	return &AlertService{}
}

// Generate evaluates all rules and returns alerts sorted by severity
// descending, then due date ascending (missing due date sorts first).
func (s *AlertService) Generate(twin *domain.CropTwin) []domain.ProactiveAlert {
	now := derivedAt(twin)
	alerts := make([]domain.ProactiveAlert, 0, 8)

	collect := func(name string, fn func() []domain.ProactiveAlert) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("alert rule %s failed: %v", name, r)
			}
		}()
		alerts = append(alerts, fn()...)
	}

	collect("overall_risk", func() []domain.ProactiveAlert { return s.overallRiskAlerts(twin, now) })
	collect("pest_confirmed", func() []domain.ProactiveAlert { return s.confirmedPestAlerts(twin, now) })
	collect("water_stress", func() []domain.ProactiveAlert { return s.waterAlerts(twin, now) })
	collect("weather", func() []domain.ProactiveAlert { return s.weatherAlerts(twin) })
	collect("stage_transition", func() []domain.ProactiveAlert { return s.stageTransitionAlerts(twin, now) })
	collect("fertilizer_due", func() []domain.ProactiveAlert { return s.fertilizerDueAlerts(twin, now) })
	collect("harvest_readiness", func() []domain.ProactiveAlert { return s.harvestReadinessAlerts(twin, now) })
	collect("seasonal", func() []domain.ProactiveAlert { return s.seasonalAlerts(twin, now) })
	collect("equipment", func() []domain.ProactiveAlert { return s.equipmentAlerts(twin, now) })
	collect("area_disease", func() []domain.ProactiveAlert { return s.areaDiseaseAlerts(twin, now) })

	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alerts[i].Severity.Rank(), alerts[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return dueUnix(alerts[i]) < dueUnix(alerts[j])
	})
	return alerts
}

// dueUnix treats a missing due date as due immediately
func dueUnix(a domain.ProactiveAlert) int64 {
	if a.DueDate == nil {
		return 0
	}
	return a.DueDate.Unix()
}

func (s *AlertService) newAlert(twin *domain.CropTwin, rule string, typ domain.AlertType, sev domain.AlertSeverity, title, msg domain.LocalizedText, due *time.Time, actionRequired bool) domain.ProactiveAlert {
	return domain.ProactiveAlert{
		ID:             artifactID(twin.ID, rule),
		Type:           typ,
		Severity:       sev,
		Title:          title,
		Message:        msg,
		ActionRequired: actionRequired,
		DueDate:        due,
		Location:       twin.Crop.FieldLocation,
		AffectedCrops:  []string{twin.Crop.ID},
	}
}

func after(now time.Time, d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

// Rule 1: overall risk above threshold
func (s *AlertService) overallRiskAlerts(twin *domain.CropTwin, now time.Time) []domain.ProactiveAlert {
	if twin.Risk.Overall <= overallRiskAlertThreshold {
		return nil
	}
	return []domain.ProactiveAlert{s.newAlert(twin, "alert/overall_risk",
		domain.AlertImmediate, domain.SeverityCritical,
		domain.LocalizedText{EN: "High crop risk detected", ML: "ഉയർന്ന വിള അപകടസാധ്യത കണ്ടെത്തി"},
		domain.LocalizedText{
			EN: fmt.Sprintf("Overall risk for %s is %.0f/100. Immediate attention needed.", twin.Crop.Name, twin.Risk.Overall),
			ML: fmt.Sprintf("%s-ന്റെ മൊത്തം അപകടസാധ്യത %.0f/100 ആണ്. അടിയന്തര ശ്രദ്ധ ആവശ്യമാണ്.", twin.Crop.LocalName, twin.Risk.Overall),
		},
		after(now, 6*time.Hour), true)}
}

// Rule 2: high pest risk confirmed by nearby sightings
func (s *AlertService) confirmedPestAlerts(twin *domain.CropTwin, now time.Time) []domain.ProactiveAlert {
	if twin.Risk.Breakdown.Pest <= pestAlertThreshold {
		return nil
	}
	confirming := 0
	field := twin.Crop.FieldLocation
	for _, sig := range twin.CommunitySignals {
		if sig.Type != domain.SignalPestSighting {
			continue
		}
		d := utils.Haversine(field.Latitude, field.Longitude, sig.Location.Latitude, sig.Location.Longitude)
		if d <= pestConfirmRadiusKm {
			confirming++
		}
	}
	if confirming == 0 {
		return nil
	}
	return []domain.ProactiveAlert{s.newAlert(twin, "alert/pest_confirmed",
		domain.AlertImmediate, domain.SeverityCritical,
		domain.LocalizedText{EN: "Pest outbreak confirmed nearby", ML: "സമീപത്ത് കീടബാധ സ്ഥിരീകരിച്ചു"},
		domain.LocalizedText{
			EN: fmt.Sprintf("Pest risk is %.0f/100 with %d confirming sighting(s) within 2 km.", twin.Risk.Breakdown.Pest, confirming),
			ML: fmt.Sprintf("കീടസാധ്യത %.0f/100 ആണ്; 2 കിലോമീറ്ററിനുള്ളിൽ %d സ്ഥിരീകരണ റിപ്പോർട്ടുകൾ.", twin.Risk.Breakdown.Pest, confirming),
		},
		after(now, 12*time.Hour), true)}
}

// Rule 3: soil moisture extremes, mutually exclusive branches
func (s *AlertService) waterAlerts(twin *domain.CropTwin, now time.Time) []domain.ProactiveAlert {
	reading, ok := twin.LatestReading()
	if !ok {
		return nil
	}
	switch {
	case reading.SoilMoisture < waterStressThreshold:
		return []domain.ProactiveAlert{s.newAlert(twin, "alert/water_stress",
			domain.AlertImmediate, domain.SeverityWarning,
			domain.LocalizedText{EN: "Severe water stress", ML: "കടുത്ത ജലക്ഷാമം"},
			domain.LocalizedText{
				EN: fmt.Sprintf("Soil moisture dropped to %.0f%%. Irrigate soon to avoid crop damage.", reading.SoilMoisture),
				ML: fmt.Sprintf("മണ്ണിലെ ഈർപ്പം %.0f%% ആയി കുറഞ്ഞു. വിളനാശം ഒഴിവാക്കാൻ ഉടൻ നനയ്ക്കുക.", reading.SoilMoisture),
			},
			after(now, 4*time.Hour), true)}
	case reading.SoilMoisture > waterloggingThreshold:
		return []domain.ProactiveAlert{s.newAlert(twin, "alert/waterlogging",
			domain.AlertImmediate, domain.SeverityWarning,
			domain.LocalizedText{EN: "Waterlogging risk", ML: "വെള്ളക്കെട്ട് സാധ്യത"},
			domain.LocalizedText{
				EN: fmt.Sprintf("Soil moisture is %.0f%%. Check drainage to prevent root damage.", reading.SoilMoisture),
				ML: fmt.Sprintf("മണ്ണിലെ ഈർപ്പം %.0f%% ആണ്. വേരുകൾ നശിക്കാതിരിക്കാൻ നീർവാർച്ച പരിശോധിക്കുക.", reading.SoilMoisture),
			},
			after(now, 8*time.Hour), true)}
	}
	return nil
}

// Rule 4: one alert per active weather alert
func (s *AlertService) weatherAlerts(twin *domain.CropTwin) []domain.ProactiveAlert {
	out := make([]domain.ProactiveAlert, 0, len(twin.Weather.Alerts))
	for _, wa := range twin.Weather.Alerts {
		typ := domain.AlertUpcoming
		sev := domain.SeverityWarning
		if wa.Severity == domain.WeatherSeverityAlert {
			typ = domain.AlertImmediate
			sev = domain.SeverityCritical
		}
		due := wa.ValidUntil
		out = append(out, s.newAlert(twin, "alert/weather/"+string(wa.Type), typ, sev,
			domain.LocalizedText{
				EN: fmt.Sprintf("Weather %s: %s", wa.Severity, wa.Type),
				ML: fmt.Sprintf("കാലാവസ്ഥാ മുന്നറിയിപ്പ്: %s", weatherTypeML(wa.Type)),
			},
			wa.Message, &due, true))
	}
	return out
}

// Rule 5: upcoming stage transition within tolerance of the schedule
func (s *AlertService) stageTransitionAlerts(twin *domain.CropTwin, now time.Time) []domain.ProactiveAlert {
	schedule, ok := stageScheduleByCrop[twin.Crop.Type]
	if !ok {
		return nil
	}
	days := twin.Crop.DaysFromPlanting(now)
	var out []domain.ProactiveAlert
	for _, tr := range schedule {
		delta := tr.expectedDay - days
		if delta < -stageTransitionTolerance || delta > stageTransitionTolerance {
			continue
		}
		remaining := delta
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, s.newAlert(twin, "alert/stage/"+string(tr.next),
			domain.AlertUpcoming, domain.SeverityInfo,
			domain.LocalizedText{EN: "Growth stage change approaching", ML: "വളർച്ചാ ഘട്ടമാറ്റം അടുക്കുന്നു"},
			domain.LocalizedText{
				EN: fmt.Sprintf("%s should enter the %s stage in about %d day(s).", twin.Crop.Name, tr.next, remaining),
				ML: fmt.Sprintf("%s ഏകദേശം %d ദിവസത്തിനുള്ളിൽ %s ഘട്ടത്തിലേക്ക് കടക്കും.", twin.Crop.LocalName, remaining, stageML(tr.next)),
			},
			after(now, time.Duration(remaining)*24*time.Hour), false))
	}
	return out
}

func stageML(s domain.StageName) string {
	switch s {
	case domain.StageGermination:
		return "മുളയ്ക്കൽ"
	case domain.StageVegetative:
		return "വളർച്ച"
	case domain.StageFlowering:
		return "പൂവിടൽ"
	case domain.StageFruiting:
		return "കായ്ക്കൽ"
	case domain.StageMaturity:
		return "മൂപ്പ്"
	default:
		return string(s)
	}
}

// Rule 6: fertilizer-due reminder based on the most recent fertilizer
// activity and the crop/stage interval table.
func (s *AlertService) fertilizerDueAlerts(twin *domain.CropTwin, now time.Time) []domain.ProactiveAlert {
	var last *domain.Activity
	for i := len(twin.Activities) - 1; i >= 0; i-- {
		if twin.Activities[i].Type == domain.ActivityFertilizer {
			last = &twin.Activities[i]
			break
		}
	}
	if last == nil {
		return nil
	}

	interval := fertilizerDefaultInterval
	recommendation := "generic NPK application"
	if stages, ok := fertilizerIntervalByCrop[twin.Crop.Type]; ok {
		if iv, ok := stages[twin.Crop.Stage.Name]; ok {
			interval = iv
			recommendation = fmt.Sprintf("stage-appropriate fertilizer for %s", twin.Crop.Stage.Name)
		}
	}
	elapsed := now.Sub(last.Timestamp)
	if elapsed < interval {
		return nil
	}

	return []domain.ProactiveAlert{s.newAlert(twin, "alert/fertilizer_due",
		domain.AlertUpcoming, domain.SeverityInfo,
		domain.LocalizedText{EN: "Fertilizer application due", ML: "വളപ്രയോഗ സമയമായി"},
		domain.LocalizedText{
			EN: fmt.Sprintf("It has been %d days since the last fertilizer application. Suggested: %s.", int(elapsed.Hours()/24), recommendation),
			ML: fmt.Sprintf("അവസാന വളപ്രയോഗം കഴിഞ്ഞ് %d ദിവസമായി. വളം നൽകേണ്ട സമയമാണ്.", int(elapsed.Hours()/24)),
		},
		after(now, 3*24*time.Hour), false)}
}

// Rule 7: harvest readiness score at maturity
func (s *AlertService) harvestReadinessAlerts(twin *domain.CropTwin, now time.Time) []domain.ProactiveAlert {
	if twin.Crop.Stage.Name != domain.StageMaturity {
		return nil
	}

	readiness := 70 +
		0.3*(twin.HealthScore-70) +
		0.2*(100-twin.Risk.Overall)

	optimal := optimalHarvestDayFor(twin.Crop)
	offset := twin.Crop.DaysFromPlanting(now) - optimal
	if offset < 0 {
		offset = -offset
	}
	switch {
	case offset <= 5:
		readiness += 20
	case offset <= 10:
		readiness += 10
	case offset > 20:
		readiness -= 15
	}
	readiness = utils.ClampScore(readiness)

	if readiness <= harvestReadyThreshold {
		return nil
	}
	return []domain.ProactiveAlert{s.newAlert(twin, "alert/harvest_ready",
		domain.AlertUpcoming, domain.SeverityInfo,
		domain.LocalizedText{EN: "Crop ready to harvest", ML: "വിള വിളവെടുപ്പിന് തയ്യാർ"},
		domain.LocalizedText{
			EN: fmt.Sprintf("Harvest readiness is %.0f/100. Conditions look good for harvesting %s.", readiness, twin.Crop.Name),
			ML: fmt.Sprintf("വിളവെടുപ്പ് സന്നദ്ധത %.0f/100 ആണ്. %s വിളവെടുക്കാൻ അനുകൂല സാഹചര്യം.", readiness, twin.Crop.LocalName),
		},
		after(now, 7*24*time.Hour), false)}
}

func optimalHarvestDayFor(crop domain.CropData) int {
	if d, ok := optimalHarvestDayByCrop[crop.Type]; ok {
		return d
	}
	d := int(crop.ExpectedHarvest.Sub(crop.PlantingDate).Hours() / 24)
	if d <= 0 {
		d = 100
	}
	return d
}

// Rule 8: Kerala monsoon calendar. Calendar-driven, not crop-driven.
func (s *AlertService) seasonalAlerts(twin *domain.CropTwin, now time.Time) []domain.ProactiveAlert {
	month := now.Month()
	switch {
	case month >= time.June && month <= time.September:
		return []domain.ProactiveAlert{s.newAlert(twin, "alert/monsoon",
			domain.AlertSeasonal, domain.SeverityInfo,
			domain.LocalizedText{EN: "Monsoon season preparation", ML: "മൺസൂൺ തയ്യാറെടുപ്പ്"},
			domain.LocalizedText{
				EN: "Monsoon is active. Keep drainage clear and watch for fungal disease.",
				ML: "മൺസൂൺ സജീവമാണ്. നീർവാർച്ച തടസ്സമില്ലാതെ സൂക്ഷിക്കുകയും കുമിൾ രോഗങ്ങൾ നിരീക്ഷിക്കുകയും ചെയ്യുക.",
			},
			nil, false)}
	case month >= time.March && month <= time.May:
		return []domain.ProactiveAlert{s.newAlert(twin, "alert/pre_monsoon",
			domain.AlertSeasonal, domain.SeverityInfo,
			domain.LocalizedText{EN: "Pre-monsoon preparation", ML: "മൺസൂൺ പൂർവ തയ്യാറെടുപ്പ്"},
			domain.LocalizedText{
				EN: "Pre-monsoon period. Service pumps, repair bunds and plan sowing for the rains.",
				ML: "മൺസൂണിന് മുമ്പുള്ള കാലം. പമ്പുകൾ പരിശോധിക്കുകയും വരമ്പുകൾ നന്നാക്കുകയും മഴയ്ക്കായി വിത ആസൂത്രണം ചെയ്യുകയും ചെയ്യുക.",
			},
			nil, false)}
	}
	return nil
}

// Rule 9: sprayer maintenance after heavy pesticide use
func (s *AlertService) equipmentAlerts(twin *domain.CropTwin, now time.Time) []domain.ProactiveAlert {
	count := 0
	for _, a := range twin.Activities {
		if a.Type == domain.ActivityPesticide && now.Sub(a.Timestamp) <= equipmentWindow {
			count++
		}
	}
	if count <= equipmentPesticideCount {
		return nil
	}
	return []domain.ProactiveAlert{s.newAlert(twin, "alert/equipment",
		domain.AlertUpcoming, domain.SeverityInfo,
		domain.LocalizedText{EN: "Sprayer maintenance due", ML: "സ്പ്രേയർ അറ്റകുറ്റപ്പണി ആവശ്യമാണ്"},
		domain.LocalizedText{
			EN: fmt.Sprintf("%d pesticide applications in the last 30 days. Clean and service the sprayer.", count),
			ML: fmt.Sprintf("കഴിഞ്ഞ 30 ദിവസത്തിനുള്ളിൽ %d കീടനാശിനി പ്രയോഗങ്ങൾ. സ്പ്രേയർ വൃത്തിയാക്കി സർവീസ് ചെയ്യുക.", count),
		},
		after(now, 7*24*time.Hour), false)}
}

// Rule 10: community-wide disease risk within 10 km
func (s *AlertService) areaDiseaseAlerts(twin *domain.CropTwin, now time.Time) []domain.ProactiveAlert {
	field := twin.Crop.FieldLocation
	count := 0
	for _, sig := range twin.CommunitySignals {
		if sig.Type != domain.SignalDiseaseOutbreak {
			continue
		}
		if now.Sub(sig.Timestamp) > diseaseScanWindow {
			continue
		}
		d := utils.Haversine(field.Latitude, field.Longitude, sig.Location.Latitude, sig.Location.Longitude)
		if d <= diseaseScanRadiusKm {
			count++
		}
	}
	if count <= diseaseMinOutbreaks {
		return nil
	}
	return []domain.ProactiveAlert{s.newAlert(twin, "alert/area_disease",
		domain.AlertUpcoming, domain.SeverityWarning,
		domain.LocalizedText{EN: "Disease outbreak in your area", ML: "നിങ്ങളുടെ പ്രദേശത്ത് രോഗബാധ"},
		domain.LocalizedText{
			EN: fmt.Sprintf("%d disease outbreaks reported within 10 km in the last two weeks. Apply preventive measures.", count),
			ML: fmt.Sprintf("കഴിഞ്ഞ രണ്ടാഴ്ചയ്ക്കുള്ളിൽ 10 കിലോമീറ്ററിനുള്ളിൽ %d രോഗബാധകൾ റിപ്പോർട്ട് ചെയ്തു. പ്രതിരോധ നടപടികൾ സ്വീകരിക്കുക.", count),
		},
		after(now, 24*time.Hour), true)}
}
