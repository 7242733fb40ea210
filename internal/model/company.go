package model

import "time"

// Company is a buyer account record. It is the second raw shape the catalog
// normalizer accepts: risk arrives as a free-text level label rather than a
// numeric score, and monetary value arrives as a stored budget rather than
// a computed volume×price product.
type Company struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Industry        string    `json:"industry"`
	Region          string    `json:"region"`
	Email           string    `json:"account_email"`
	TotalBudgetMXN  float64   `json:"total_budget"`
	BalanceMXN      float64   `json:"available_balance_mxn"`
	CO2TargetTons   float64   `json:"co2_target_tons"`
	CO2AchievedTons float64   `json:"co2_achieved_tons"`
	RiskLevel       string    `json:"risk_level"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
