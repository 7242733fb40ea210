// Package certificate issues water-offset certificates for completed
// purchases: folio assignment, offset math, and attestation state.
package certificate

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/aquanexus/credits-cli/internal/catalog"
	"github.com/aquanexus/credits-cli/internal/model"
	"github.com/aquanexus/credits-cli/internal/store"
)

// FolioPrefix identifies the Mexican hydrological registry series.
const FolioPrefix = "HYD-MX"

// Folio renders a registry folio, e.g. "HYD-MX-2026-00042". seq is the
// 1-based position within the year's series.
func Folio(year, seq int) string {
	return fmt.Sprintf("%s-%04d-%05d", FolioPrefix, year, seq)
}

// Issuer assigns folios from the store's yearly sequence and persists
// issued certificates.
type Issuer struct {
	store store.Store
	now   func() time.Time
}

// NewIssuer creates an Issuer. now may be nil, in which case wall-clock
// time is used.
func NewIssuer(s store.Store, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{store: s, now: now}
}

// Issue creates and persists a certificate attesting the purchase of a
// project's credits. The water offset is the project's saved volume and the
// CO2 offset derives from it with the shared emission factor.
func (i *Issuer) Issue(ctx context.Context, p *model.Project, company, txHash string) (*model.Certificate, error) {
	now := i.now().UTC()
	year := now.Year()

	count, err := i.store.CountCertificates(ctx, year)
	if err != nil {
		return nil, eris.Wrap(err, "certificate: next folio")
	}

	cert := model.Certificate{
		Folio:         Folio(year, count+1),
		ProjectID:     p.ID,
		Company:       company,
		WaterOffsetM3: p.WaterSavingsM3,
		CO2OffsetTons: catalog.CO2Tons(p.WaterSavingsM3),
		Status:        model.CertificateIssued,
		Hash:          txHash,
		Period:        fmt.Sprintf("%d", year),
		IssuedAt:      now,
	}

	issued, err := i.store.CreateCertificate(ctx, cert)
	if err != nil {
		return nil, eris.Wrap(err, "certificate: persist")
	}
	return issued, nil
}

// Validate marks a certificate as externally validated. Only issued
// certificates can transition.
func Validate(cert *model.Certificate) error {
	if cert.Status != model.CertificateIssued {
		return eris.Errorf("certificate: cannot validate from status %q", cert.Status)
	}
	cert.Status = model.CertificateValidated
	return nil
}
