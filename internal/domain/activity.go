package domain

import "time"

// ActivityType classifies logged farmer actions
type ActivityType string

const (
	ActivityPlanting    ActivityType = "planting"
	ActivityIrrigation  ActivityType = "irrigation"
	ActivityFertilizer  ActivityType = "fertilizer"
	ActivityPesticide   ActivityType = "pesticide"
	ActivityHarvest     ActivityType = "harvest"
	ActivityObservation ActivityType = "observation"
)

// Activity is one logged farmer action. The log is append-only and
// drives the fertilizer-interval and equipment-maintenance heuristics.
type Activity struct {
	ID             string       `json:"id"`
	Type           ActivityType `json:"type"`
	Timestamp      time.Time    `json:"timestamp"`
	Location       Location     `json:"location"`
	Materials      []string     `json:"materials,omitempty"`
	Cost           float64      `json:"cost"`
	Photos         []string     `json:"photos,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	SchemeEligible bool         `json:"scheme_eligible"`
	Verified       bool         `json:"verified"`
}
