package domain

import "time"

// SignalType classifies community reports
type SignalType string

const (
	SignalPestSighting    SignalType = "pest_sighting"
	SignalDiseaseOutbreak SignalType = "disease_outbreak"
	SignalGoodYield       SignalType = "good_yield"
	SignalMarketPrice     SignalType = "market_price"
)

// CommunitySignal is a geotagged, confidence-weighted observation
// submitted by any farmer in the region. A signal is attached to a
// twin only when it falls inside the ingestion radius of the twin's
// field; individual rules may apply tighter radii on top.
type CommunitySignal struct {
	ID          string        `json:"id"`
	FarmerID    string        `json:"farmer_id"`
	Location    Location      `json:"location"`
	Observation LocalizedText `json:"observation"`
	Type        SignalType    `json:"type"`
	Timestamp   time.Time     `json:"timestamp"`
	Confidence  float64       `json:"confidence"` // [0,1]
	Verified    bool          `json:"verified"`
}
