package model

import "time"

// ProjectStatus tracks marketplace availability of a project's credits.
type ProjectStatus string

const (
	ProjectAvailable ProjectStatus = "available"
	ProjectSold      ProjectStatus = "sold"
)

// Project is a water-savings project listed on the marketplace. Column names
// follow the backing table; absent numeric fields are zero and coordinates
// are nil when a project has no geolocation.
type Project struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Crop              string        `json:"crop"`
	Technology        string        `json:"technology"`
	Region            string        `json:"region"`
	Location          string        `json:"location"`
	WaterSavingsM3    float64       `json:"water_savings_m3"`
	PricePerCredit    float64       `json:"price_per_credit"`
	RiskScore         float64       `json:"risk_score"`
	VerifiedByAI      bool          `json:"verified_by_ai"`
	VerificationLevel string        `json:"verification_level,omitempty"`
	Description       string        `json:"ai_description,omitempty"`
	ImageURL          string        `json:"image_url,omitempty"`
	Status            ProjectStatus `json:"status"`
	Lat               *float64      `json:"lat,omitempty"`
	Lng               *float64      `json:"lng,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// HasCoordinates reports whether the project carries a full coordinate pair.
func (p Project) HasCoordinates() bool {
	return p.Lat != nil && p.Lng != nil
}

// MapFeature is the flat point shape the map layer renders. Only projects
// with coordinates produce features.
type MapFeature struct {
	ID        string  `json:"id"`
	Lng       float64 `json:"lng"`
	Lat       float64 `json:"lat"`
	Status    string  `json:"status"`
	RiskScore float64 `json:"riskScore"`
}

// MapFeatureOf projects a marketplace record onto a map feature. The second
// return value is false when the record has no coordinates.
func MapFeatureOf(p Project) (MapFeature, bool) {
	if !p.HasCoordinates() {
		return MapFeature{}, false
	}
	return MapFeature{
		ID:        p.ID,
		Lng:       *p.Lng,
		Lat:       *p.Lat,
		Status:    string(p.Status),
		RiskScore: p.RiskScore,
	}, true
}
