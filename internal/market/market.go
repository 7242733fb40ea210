// Package market executes credit purchases: availability check, settlement
// hash, transaction record, and certificate issuance.
package market

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aquanexus/credits-cli/internal/certificate"
	"github.com/aquanexus/credits-cli/internal/model"
	"github.com/aquanexus/credits-cli/internal/store"
)

// Purchase errors surfaced to transport handlers.
var (
	ErrProjectSold     = eris.New("market: project already sold")
	ErrProjectNotFound = eris.New("market: project not found")
	ErrNoBuyer         = eris.New("market: buyer company required")
)

// Receipt is the outcome of a completed purchase.
type Receipt struct {
	Project     *model.Project     `json:"project"`
	Transaction *model.Transaction `json:"transaction"`
	Certificate *model.Certificate `json:"certificate"`
}

// Market settles purchases against the store.
type Market struct {
	store  store.Store
	issuer *certificate.Issuer
}

// New creates a Market backed by the given store.
func New(s store.Store, issuer *certificate.Issuer) *Market {
	return &Market{store: s, issuer: issuer}
}

// Buy purchases all credits of an available project for the named company.
// The project is atomically marked sold, a settlement record is written, and
// a certificate is issued. A project can only ever be bought once.
func (m *Market) Buy(ctx context.Context, projectID, buyerCompany string) (*Receipt, error) {
	if buyerCompany == "" {
		return nil, ErrNoBuyer
	}

	// Claim the project first; the conditional update loses cleanly if a
	// concurrent purchase got there before us.
	if err := m.store.MarkProjectSold(ctx, projectID); err != nil {
		switch {
		case eris.Is(err, store.ErrAlreadySold):
			return nil, ErrProjectSold
		case eris.Is(err, store.ErrNotFound):
			return nil, ErrProjectNotFound
		}
		return nil, eris.Wrap(err, "market: claim project")
	}

	p, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, eris.Wrap(err, "market: reload project")
	}

	amount := p.WaterSavingsM3 * p.PricePerCredit
	hash, err := settlementHash()
	if err != nil {
		return nil, err
	}

	tx, err := m.store.CreateTransaction(ctx, model.Transaction{
		ProjectID:     p.ID,
		BuyerCompany:  buyerCompany,
		AmountPaidMXN: amount,
		Hash:          hash,
	})
	if err != nil {
		return nil, eris.Wrap(err, "market: record transaction")
	}

	cert, err := m.issuer.Issue(ctx, p, buyerCompany, hash)
	if err != nil {
		return nil, eris.Wrap(err, "market: issue certificate")
	}

	zap.L().Info("credits purchased",
		zap.String("project_id", p.ID),
		zap.String("buyer", buyerCompany),
		zap.Float64("amount_mxn", amount),
		zap.String("folio", cert.Folio),
	)

	return &Receipt{Project: p, Transaction: tx, Certificate: cert}, nil
}

// settlementHash produces an opaque 32-byte settlement reference rendered
// with a 0x prefix.
func settlementHash() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", eris.Wrap(err, "market: settlement hash")
	}
	return "0x" + hex.EncodeToString(buf), nil
}
