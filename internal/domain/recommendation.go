package domain

import "time"

// RecommendationType classifies the intent of a recommendation
type RecommendationType string

const (
	RecPreventive RecommendationType = "preventive"
	RecCorrective RecommendationType = "corrective"
	RecAdvisory   RecommendationType = "advisory"
)

// Priority orders recommendations for the farmer
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank maps priority to its sort weight (critical=4 .. low=1)
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// ActionItem is one concrete task inside a recommendation
type ActionItem struct {
	Task          LocalizedText `json:"task"`
	DueDate       time.Time     `json:"due_date"`
	Materials     []string      `json:"materials,omitempty"`
	EstimatedCost float64       `json:"estimated_cost"` // INR
	DurationHours float64       `json:"duration_hours"`
	Difficulty    string        `json:"difficulty"` // easy | moderate | hard
}

// Alternative is a different option the farmer could choose instead
type Alternative struct {
	Option LocalizedText   `json:"option"`
	Pros   []LocalizedText `json:"pros,omitempty"`
	Cons   []LocalizedText `json:"cons,omitempty"`
}

// Explainability justifies a recommendation: the reasoning, the data
// consulted, and the alternatives considered. An empty alternatives
// list is valid.
type Explainability struct {
	Reasoning    LocalizedText `json:"reasoning"`
	DataSources  []string      `json:"data_sources"`
	Confidence   float64       `json:"confidence"` // [0,1]
	Alternatives []Alternative `json:"alternatives"`
}

// Recommendation is one actionable, prioritized piece of guidance
type Recommendation struct {
	ID             string             `json:"id"`
	Type           RecommendationType `json:"type"`
	Priority       Priority           `json:"priority"`
	Title          LocalizedText      `json:"title"`
	Description    LocalizedText      `json:"description"`
	Actions        []ActionItem       `json:"actions"`
	Timing         string             `json:"timing"`
	Confidence     float64            `json:"confidence"` // [0,1]
	Explainability Explainability     `json:"explainability"`
}
