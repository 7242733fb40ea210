// Package seed loads the demo dataset: a fixed set of Mexican water-savings
// projects and buyer companies for local development and demos.
package seed

import (
	"context"
	_ "embed"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aquanexus/credits-cli/internal/db"
	"github.com/aquanexus/credits-cli/internal/model"
	"github.com/aquanexus/credits-cli/internal/store"
)

//go:embed seed.yaml
var seedYAML []byte

// Dataset is the parsed demo data.
type Dataset struct {
	Projects  []projectRow `yaml:"projects"`
	Companies []companyRow `yaml:"companies"`
}

type projectRow struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	Crop              string   `yaml:"crop"`
	Technology        string   `yaml:"technology"`
	Region            string   `yaml:"region"`
	Location          string   `yaml:"location"`
	WaterSavingsM3    float64  `yaml:"water_savings_m3"`
	PricePerCredit    float64  `yaml:"price_per_credit"`
	RiskScore         float64  `yaml:"risk_score"`
	VerificationLevel string   `yaml:"verification_level"`
	Lat               *float64 `yaml:"lat"`
	Lng               *float64 `yaml:"lng"`
}

type companyRow struct {
	ID              string  `yaml:"id"`
	Name            string  `yaml:"name"`
	Industry        string  `yaml:"industry"`
	Region          string  `yaml:"region"`
	Email           string  `yaml:"account_email"`
	TotalBudgetMXN  float64 `yaml:"total_budget"`
	BalanceMXN      float64 `yaml:"available_balance_mxn"`
	CO2TargetTons   float64 `yaml:"co2_target_tons"`
	CO2AchievedTons float64 `yaml:"co2_achieved_tons"`
	RiskLevel       string  `yaml:"risk_level"`
}

// Load parses the embedded dataset.
func Load() (*Dataset, error) {
	var d Dataset
	if err := yaml.Unmarshal(seedYAML, &d); err != nil {
		return nil, eris.Wrap(err, "seed: parse dataset")
	}
	return &d, nil
}

// Project converts a row to its model shape.
func (r projectRow) Project() model.Project {
	return model.Project{
		ID:                r.ID,
		Name:              r.Name,
		Crop:              r.Crop,
		Technology:        r.Technology,
		Region:            r.Region,
		Location:          r.Location,
		WaterSavingsM3:    r.WaterSavingsM3,
		PricePerCredit:    r.PricePerCredit,
		RiskScore:         r.RiskScore,
		VerificationLevel: r.VerificationLevel,
		Status:            model.ProjectAvailable,
		Lat:               r.Lat,
		Lng:               r.Lng,
	}
}

// Company converts a row to its model shape.
func (r companyRow) Company() model.Company {
	return model.Company{
		ID:              r.ID,
		Name:            r.Name,
		Industry:        r.Industry,
		Region:          r.Region,
		Email:           r.Email,
		TotalBudgetMXN:  r.TotalBudgetMXN,
		BalanceMXN:      r.BalanceMXN,
		CO2TargetTons:   r.CO2TargetTons,
		CO2AchievedTons: r.CO2AchievedTons,
		RiskLevel:       r.RiskLevel,
	}
}

// Apply inserts the dataset through the store, row by row. Works on any
// backend.
func Apply(ctx context.Context, s store.Store) (int, error) {
	d, err := Load()
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, row := range d.Projects {
		if _, err := s.CreateProject(ctx, row.Project()); err != nil {
			return inserted, eris.Wrapf(err, "seed: project %s", row.ID)
		}
		inserted++
	}
	for _, row := range d.Companies {
		if _, err := s.CreateCompany(ctx, row.Company()); err != nil {
			return inserted, eris.Wrapf(err, "seed: company %s", row.ID)
		}
		inserted++
	}

	zap.L().Info("seed applied",
		zap.Int("projects", len(d.Projects)),
		zap.Int("companies", len(d.Companies)),
	)
	return inserted, nil
}

// ApplyBulk loads projects with the COPY protocol on Postgres. Companies go
// through regular inserts since the table is tiny.
func ApplyBulk(ctx context.Context, s store.Store, pool db.Pool) (int64, error) {
	d, err := Load()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	columns := []string{
		"id", "name", "crop", "technology", "region", "location",
		"water_savings_m3", "price_per_credit", "risk_score", "verified_by_ai",
		"verification_level", "ai_description", "image_url", "status",
		"lat", "lng", "created_at", "updated_at",
	}
	rows := make([][]any, len(d.Projects))
	for i, row := range d.Projects {
		p := row.Project()
		rows[i] = []any{
			p.ID, p.Name, p.Crop, p.Technology, p.Region, p.Location,
			p.WaterSavingsM3, p.PricePerCredit, p.RiskScore, p.VerifiedByAI,
			p.VerificationLevel, p.Description, p.ImageURL, string(p.Status),
			p.Lat, p.Lng, now, now,
		}
	}

	n, err := db.CopyFrom(ctx, pool, "projects", columns, rows)
	if err != nil {
		return 0, err
	}

	for _, row := range d.Companies {
		if _, err := s.CreateCompany(ctx, row.Company()); err != nil {
			return n, eris.Wrapf(err, "seed: company %s", row.ID)
		}
		n++
	}

	zap.L().Info("seed applied",
		zap.Int64("rows", n),
		zap.Bool("bulk", true),
	)
	return n, nil
}
