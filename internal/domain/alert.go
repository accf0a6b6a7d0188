package domain

import "time"

// AlertType is the time horizon of a proactive alert
type AlertType string

const (
	AlertImmediate AlertType = "immediate"
	AlertUpcoming  AlertType = "upcoming"
	AlertSeasonal  AlertType = "seasonal"
)

// AlertSeverity orders alerts for display
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Rank maps severity to its sort weight (critical=3 .. info=1)
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	default:
		return 1
	}
}

// ProactiveAlert is a time-bounded notification generated without an
// explicit user query. DueDate is optional; alerts without one sort
// as if due immediately.
type ProactiveAlert struct {
	ID             string        `json:"id"`
	Type           AlertType     `json:"type"`
	Severity       AlertSeverity `json:"severity"`
	Title          LocalizedText `json:"title"`
	Message        LocalizedText `json:"message"`
	ActionRequired bool          `json:"action_required"`
	DueDate        *time.Time    `json:"due_date,omitempty"`
	Location       Location      `json:"location"`
	AffectedCrops  []string      `json:"affected_crops,omitempty"`
}
