package domain

// CommunicationPreference is how the farmer prefers to be reached
type CommunicationPreference string

const (
	CommPrefVoice  CommunicationPreference = "voice"
	CommPrefText   CommunicationPreference = "text"
	CommPrefVisual CommunicationPreference = "visual"
)

// FarmLocation places the farm administratively and geographically
type FarmLocation struct {
	District    string   `json:"district"`
	Taluk       string   `json:"taluk"`
	Village     string   `json:"village"`
	Coordinates Location `json:"coordinates"`
}

// FarmerProfile is the farmer's identity and farm context. Immutable
// after creation except through the (out of scope) profile edit flow.
type FarmerProfile struct {
	ID                string                  `json:"id"`
	Name              string                  `json:"name"`
	Location          FarmLocation            `json:"location"`
	FarmSizeAcres     float64                 `json:"farm_size_acres"`
	ExperienceYears   int                     `json:"experience_years"`
	PreferredLanguage string                  `json:"preferred_language"`
	CommPreference    CommunicationPreference `json:"comm_preference"`
	EnrolledSchemes   []string                `json:"enrolled_schemes,omitempty"`
}

// RegionKey identifies the farmer's region for federated grouping
func (p FarmerProfile) RegionKey() string {
	return p.Location.District + "_" + p.Location.Taluk
}
