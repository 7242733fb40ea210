package market

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquanexus/credits-cli/internal/certificate"
	"github.com/aquanexus/credits-cli/internal/model"
	"github.com/aquanexus/credits-cli/internal/store"
)

var hashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

func newTestMarket(t *testing.T) (*Market, store.Store) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return New(s, certificate.NewIssuer(s, nil)), s
}

func TestBuy(t *testing.T) {
	m, s := newTestMarket(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, model.Project{
		Name:           "Rancho San Miguel",
		WaterSavingsM3: 1500,
		PricePerCredit: 25,
	})
	require.NoError(t, err)

	receipt, err := m.Buy(ctx, p.ID, "AgroVerde MX")
	require.NoError(t, err)

	assert.Equal(t, model.ProjectSold, receipt.Project.Status)
	assert.True(t, receipt.Project.VerifiedByAI)
	assert.InDelta(t, 37500.0, receipt.Transaction.AmountPaidMXN, 0.001)
	assert.Regexp(t, hashPattern, receipt.Transaction.Hash)
	assert.Equal(t, receipt.Transaction.Hash, receipt.Certificate.Hash, "certificate references the settlement")
	assert.Equal(t, model.CertificateIssued, receipt.Certificate.Status)
	assert.InDelta(t, 0.21, receipt.Certificate.CO2OffsetTons, 0.001)

	txs, err := s.ListTransactions(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestBuy_AlreadySold(t *testing.T) {
	m, s := newTestMarket(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, model.Project{Name: "Finca La Esperanza", WaterSavingsM3: 800, PricePerCredit: 30})
	require.NoError(t, err)

	_, err = m.Buy(ctx, p.ID, "AgroVerde MX")
	require.NoError(t, err)

	_, err = m.Buy(ctx, p.ID, "Industrias del Valle")
	assert.ErrorIs(t, err, ErrProjectSold)

	// The losing purchase leaves no trace.
	txs, err := s.ListTransactions(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestBuy_Validation(t *testing.T) {
	m, _ := newTestMarket(t)
	ctx := context.Background()

	_, err := m.Buy(ctx, "ghost", "AgroVerde MX")
	assert.ErrorIs(t, err, ErrProjectNotFound)

	_, err = m.Buy(ctx, "anything", "")
	assert.ErrorIs(t, err, ErrNoBuyer)
}

func TestSettlementHashUnique(t *testing.T) {
	t.Parallel()

	a, err := settlementHash()
	require.NoError(t, err)
	b, err := settlementHash()
	require.NoError(t, err)

	assert.Regexp(t, hashPattern, a)
	assert.NotEqual(t, a, b)
}
