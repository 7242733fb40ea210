package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquanexus/credits-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteProjectLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	lat, lng := 20.5235, -100.8157
	created, err := s.CreateProject(ctx, model.Project{
		Name:           "Rancho San Miguel",
		Crop:           "Maíz",
		Region:         "Norte",
		Location:       "Guanajuato, MX",
		WaterSavingsM3: 1500,
		PricePerCredit: 25,
		RiskScore:      85,
		Lat:            &lat,
		Lng:            &lng,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.ProjectAvailable, created.Status, "new projects default to available")

	got, err := s.GetProject(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rancho San Miguel", got.Name)
	assert.InDelta(t, 1500.0, got.WaterSavingsM3, 0.001)
	require.True(t, got.HasCoordinates())
	assert.InDelta(t, -100.8157, *got.Lng, 0.0001)

	_, err = s.GetProject(ctx, "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteMarkProjectSold(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, model.Project{Name: "Finca La Esperanza", WaterSavingsM3: 800})
	require.NoError(t, err)

	require.NoError(t, s.MarkProjectSold(ctx, p.ID))

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectSold, got.Status)
	assert.True(t, got.VerifiedByAI, "a completed sale implies verification")

	// Second purchase of the same project must fail, not silently succeed.
	assert.ErrorIs(t, s.MarkProjectSold(ctx, p.ID), ErrAlreadySold)
	assert.ErrorIs(t, s.MarkProjectSold(ctx, "ghost"), ErrNotFound)
}

func TestSQLiteListProjectsFilter(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for _, p := range []model.Project{
		{Name: "A", Region: "Norte"},
		{Name: "B", Region: "Bajío"},
		{Name: "C", Region: "Norte"},
	} {
		_, err := s.CreateProject(ctx, p)
		require.NoError(t, err)
	}
	sold, err := s.CreateProject(ctx, model.Project{Name: "D", Region: "Norte"})
	require.NoError(t, err)
	require.NoError(t, s.MarkProjectSold(ctx, sold.ID))

	all, err := s.ListProjects(ctx, ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	norte, err := s.ListProjects(ctx, ProjectFilter{Region: "Norte"})
	require.NoError(t, err)
	assert.Len(t, norte, 3)

	available, err := s.ListProjects(ctx, ProjectFilter{Status: model.ProjectAvailable, Region: "Norte"})
	require.NoError(t, err)
	assert.Len(t, available, 2)

	limited, err := s.ListProjects(ctx, ProjectFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteProjectDescriptions(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	blank, err := s.CreateProject(ctx, model.Project{Name: "Sin Texto"})
	require.NoError(t, err)
	_, err = s.CreateProject(ctx, model.Project{Name: "Con Texto", Description: "Proyecto de riego eficiente."})
	require.NoError(t, err)

	missing, err := s.ListProjectsMissingDescription(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, blank.ID, missing[0].ID)

	require.NoError(t, s.UpdateProjectDescription(ctx, blank.ID, "Texto generado."))
	missing, err = s.ListProjectsMissingDescription(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	assert.ErrorIs(t, s.UpdateProjectDescription(ctx, "ghost", "x"), ErrNotFound)
}

func TestSQLiteCompanies(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	c, err := s.CreateCompany(ctx, model.Company{
		Name:           "Industrias del Valle",
		Industry:       "Manufactura",
		Region:         "Bajío",
		TotalBudgetMXN: 2000000,
		RiskLevel:      "high",
	})
	require.NoError(t, err)

	got, err := s.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Industrias del Valle", got.Name)
	assert.InDelta(t, 2000000.0, got.TotalBudgetMXN, 0.001)

	got.BalanceMXN = 150000
	require.NoError(t, s.UpdateCompany(ctx, *got))

	updated, err := s.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.InDelta(t, 150000.0, updated.BalanceMXN, 0.001)

	list, err := s.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, s.UpdateCompany(ctx, model.Company{ID: "ghost"}), ErrNotFound)
}

func TestSQLiteTransactionsAndCertificates(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, model.Project{Name: "Rancho San Miguel", WaterSavingsM3: 1500, PricePerCredit: 25})
	require.NoError(t, err)

	tx, err := s.CreateTransaction(ctx, model.Transaction{
		ProjectID:     p.ID,
		BuyerCompany:  "AgroVerde MX",
		AmountPaidMXN: 37500,
		Hash:          "0xdeadbeef",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)

	txs, err := s.ListTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "0xdeadbeef", txs[0].Hash)

	year := time.Now().UTC().Year()
	n, err := s.CountCertificates(ctx, year)
	require.NoError(t, err)
	assert.Zero(t, n)

	cert, err := s.CreateCertificate(ctx, model.Certificate{
		Folio:         "HYD-MX-2026-00001",
		ProjectID:     p.ID,
		Company:       "AgroVerde MX",
		WaterOffsetM3: 1500,
		CO2OffsetTons: 0.21,
		Status:        model.CertificateIssued,
		Hash:          "0xdeadbeef",
		Period:        "2026",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cert.ID)

	n, err = s.CountCertificates(ctx, year)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	certs, err := s.ListCertificates(ctx, "AgroVerde MX")
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, model.CertificateIssued, certs[0].Status)

	none, err := s.ListCertificates(ctx, "Otra Empresa")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteUsersAndSessions(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, model.User{
		Email:        "ana@agroverde.mx",
		PasswordHash: "$2a$10$fakehash",
		CompanyID:    "c1",
	})
	require.NoError(t, err)

	byEmail, err := s.GetUserByEmail(ctx, "ana@agroverde.mx")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.GetUserByEmail(ctx, "nadie@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	now := time.Now().UTC()
	require.NoError(t, s.CreateSession(ctx, model.Session{
		ID:        "sess-live",
		UserID:    u.ID,
		ExpiresAt: now.Add(6 * time.Hour),
	}))
	require.NoError(t, s.CreateSession(ctx, model.Session{
		ID:        "sess-stale",
		UserID:    u.ID,
		ExpiresAt: now.Add(-time.Minute),
	}))

	sess, err := s.GetSession(ctx, "sess-live")
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.UserID)

	purged, err := s.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = s.GetSession(ctx, "sess-stale")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteSession(ctx, "sess-live"))
	_, err = s.GetSession(ctx, "sess-live")
	assert.ErrorIs(t, err, ErrNotFound)
}
