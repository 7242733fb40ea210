// Package satellite audits project sites from multispectral imagery. A
// Provider yields NDWI (normalized difference water index) samples over an
// observation window; the Analyzer reduces them to a verification verdict.
package satellite

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aquanexus/credits-cli/internal/model"
)

// DefaultThreshold is the mean-NDWI ceiling below which a site's water use
// is consistent with its claimed savings.
const DefaultThreshold = 0.3

// Audit statuses.
const (
	StatusVerified = "verified"
	StatusAtRisk   = "at_risk"
)

// Sample is a single NDWI observation of a site.
type Sample struct {
	Date time.Time `json:"date"`
	NDWI float64   `json:"ndwi"`
}

// Provider yields NDWI samples for a coordinate over a trailing window.
type Provider interface {
	Samples(ctx context.Context, lat, lng float64, months int) ([]Sample, error)
}

// Report is the outcome of auditing one project site.
type Report struct {
	ProjectID   string   `json:"project_id"`
	MeanNDWI    float64  `json:"mean_ndwi"`
	SampleCount int      `json:"sample_count"`
	Months      int      `json:"window_months"`
	Status      string   `json:"status"`
	Samples     []Sample `json:"samples,omitempty"`
}

// Verified reports whether the audit cleared the site.
func (r *Report) Verified() bool {
	return r.Status == StatusVerified
}

// Analyzer reduces provider samples to audit reports.
type Analyzer struct {
	provider  Provider
	threshold float64
	months    int
}

// NewAnalyzer creates an Analyzer. A non-positive threshold or window falls
// back to the defaults.
func NewAnalyzer(p Provider, threshold float64, months int) *Analyzer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if months <= 0 {
		months = 6
	}
	return &Analyzer{provider: p, threshold: threshold, months: months}
}

// Audit fetches the project's observation window and classifies the site.
// Projects without coordinates cannot be audited.
func (a *Analyzer) Audit(ctx context.Context, p *model.Project) (*Report, error) {
	if !p.HasCoordinates() {
		return nil, eris.Errorf("satellite: project %s has no coordinates", p.ID)
	}

	samples, err := a.provider.Samples(ctx, *p.Lat, *p.Lng, a.months)
	if err != nil {
		return nil, eris.Wrapf(err, "satellite: fetch samples for %s", p.ID)
	}
	if len(samples) == 0 {
		return nil, eris.Errorf("satellite: no observations for %s", p.ID)
	}

	var sum float64
	for _, s := range samples {
		sum += s.NDWI
	}
	mean := sum / float64(len(samples))

	status := StatusAtRisk
	if mean < a.threshold {
		status = StatusVerified
	}

	zap.L().Debug("site audited",
		zap.String("project_id", p.ID),
		zap.Float64("mean_ndwi", mean),
		zap.Int("samples", len(samples)),
		zap.String("status", status),
	)

	return &Report{
		ProjectID:   p.ID,
		MeanNDWI:    mean,
		SampleCount: len(samples),
		Months:      a.months,
		Status:      status,
		Samples:     samples,
	}, nil
}
