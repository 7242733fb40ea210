package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquanexus/credits-cli/internal/auth"
	"github.com/aquanexus/credits-cli/internal/catalog"
	"github.com/aquanexus/credits-cli/internal/certificate"
	"github.com/aquanexus/credits-cli/internal/market"
	"github.com/aquanexus/credits-cli/internal/model"
	"github.com/aquanexus/credits-cli/internal/satellite"
	"github.com/aquanexus/credits-cli/internal/store"
)

type testEnv struct {
	store  store.Store
	server *httptest.Server
	client *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	authSvc := auth.NewService(s, 6*time.Hour)
	srv := New(Options{
		Store:    s,
		Market:   market.New(s, certificate.NewIssuer(s, nil)),
		Auth:     authSvc,
		Limiter:  auth.NewLoginLimiter(1000, 1000),
		Analyzer: satellite.NewAnalyzer(&satellite.DemoProvider{}, 0.3, 6),
		MapToken: "pk.test-token",
	})

	ts := httptest.NewServer(srv.Router([]string{"*"}))
	t.Cleanup(ts.Close)

	jar := newCookieClient(t)
	return &testEnv{store: s, server: ts, client: jar}
}

func newCookieClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (e *testEnv) get(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (e *testEnv) post(t *testing.T, path string, body any, out any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := e.client.Post(e.server.URL+path, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	resp := e.post(t, "/api/auth/register", map[string]string{
		"email": "ana@agroverde.mx", "password": "contraseña-larga", "company_id": "c1",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = e.post(t, "/api/auth/login", map[string]string{
		"email": "ana@agroverde.mx", "password": "contraseña-larga",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (e *testEnv) seedProject(t *testing.T, name string, volume, price, risk float64) *model.Project {
	t.Helper()
	lat, lng := 20.5235, -100.8157
	p, err := e.store.CreateProject(context.Background(), model.Project{
		Name:           name,
		Crop:           "Maíz",
		Region:         "Norte",
		Location:       "Guanajuato, MX",
		WaterSavingsM3: volume,
		PricePerCredit: price,
		RiskScore:      risk,
		Lat:            &lat,
		Lng:            &lng,
	})
	require.NoError(t, err)
	return p
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	var body map[string]string
	resp := env.get(t, "/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestProjectEndpoints(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProject(t, "Rancho San Miguel", 1500, 25, 85)

	var list []model.Project
	resp := env.get(t, "/api/projects", &list)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)

	var got model.Project
	resp = env.get(t, "/api/projects/"+p.ID, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Rancho San Miguel", got.Name)

	resp = env.get(t, "/api/projects/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCatalogEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "Rancho San Miguel", 1500, 25, 85)
	env.seedProject(t, "Finca La Esperanza", 12500, 28, 40)

	var view catalog.View
	resp := env.get(t, "/api/catalog?sortBy=waterSaved", &view)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, view.Visible, 2)
	assert.Equal(t, "Finca La Esperanza", view.Visible[0].Name, "largest saver first")
	assert.Equal(t, 2, view.Totals.ActiveRecords)
	assert.InDelta(t, 14000.0, view.Totals.WaterVolumeM3, 0.001)
	require.NotNil(t, view.Selected)

	// A search narrows visible records but not the aggregates.
	resp = env.get(t, "/api/catalog?search=esperanza", &view)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, view.Visible, 1)
	assert.Equal(t, 2, view.Totals.ActiveRecords)
}

func TestBuyCreditsFlow(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProject(t, "Rancho San Miguel", 1500, 25, 85)

	// Purchases require a session.
	resp := env.post(t, "/api/buy-credits", map[string]string{"project_id": p.ID, "company": "AgroVerde MX"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	env.login(t)

	var receipt market.Receipt
	resp = env.post(t, "/api/buy-credits", map[string]string{"project_id": p.ID, "company": "AgroVerde MX"}, &receipt)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, model.ProjectSold, receipt.Project.Status)
	assert.Regexp(t, `^0x[0-9a-f]{64}$`, receipt.Transaction.Hash)
	assert.Contains(t, receipt.Certificate.Folio, "HYD-MX-")

	// Second purchase conflicts.
	resp = env.post(t, "/api/buy-credits", map[string]string{"project_id": p.ID, "company": "Otra"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var certs []model.Certificate
	resp = env.get(t, "/api/certificates?company=AgroVerde+MX", &certs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, certs, 1)

	var txs []model.Transaction
	resp = env.get(t, "/api/transactions", &txs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, txs, 1)
}

func TestMapEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "Rancho San Miguel", 1500, 25, 85)
	_, err := env.store.CreateProject(context.Background(), model.Project{Name: "Sin Coordenadas"})
	require.NoError(t, err)

	var features []model.MapFeature
	resp := env.get(t, "/api/map/features", &features)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, features, 1, "projects without coordinates are skipped")
	assert.InDelta(t, 85.0, features[0].RiskScore, 0.001)

	var cfg map[string]string
	resp = env.get(t, "/api/map/config", &cfg)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pk.test-token", cfg["accessToken"])
}

func TestAuditEndpoint(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProject(t, "Rancho San Miguel", 1500, 25, 85)

	var report satellite.Report
	resp := env.get(t, fmt.Sprintf("/api/projects/%s/audit", p.ID), &report)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, p.ID, report.ProjectID)
	assert.Contains(t, []string{satellite.StatusVerified, satellite.StatusAtRisk}, report.Status)
	assert.Equal(t, 6, report.SampleCount)

	// No coordinates, no audit.
	bare, err := env.store.CreateProject(context.Background(), model.Project{Name: "Sin Coordenadas"})
	require.NoError(t, err)
	resp = env.get(t, fmt.Sprintf("/api/projects/%s/audit", bare.ID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDashboardEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "Rancho San Miguel", 1500, 25, 85)
	env.seedProject(t, "Finca La Esperanza", 12500, 28, 40)

	var d Dashboard
	resp := env.get(t, "/api/dashboard", &d)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, d.Projects)
	assert.Equal(t, 2, d.Available)
	assert.InDelta(t, 14000.0, d.Totals.WaterVolumeM3, 0.001)
	assert.Empty(t, d.Degraded)
	assert.NotNil(t, d.Transactions)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	env.login(t)

	var me model.User
	resp = env.get(t, "/api/auth/me", &me)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ana@agroverde.mx", me.Email)

	resp = env.post(t, "/api/auth/logout", map[string]string{}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRateLimit(t *testing.T) {
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	srv := New(Options{
		Store:   s,
		Market:  market.New(s, certificate.NewIssuer(s, nil)),
		Auth:    auth.NewService(s, 6*time.Hour),
		Limiter: auth.NewLoginLimiter(1, 2),
	})
	ts := httptest.NewServer(srv.Router([]string{"*"}))
	t.Cleanup(ts.Close)

	body := []byte(`{"email":"x@y.mx","password":"whatever-pass"}`)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, http.StatusUnauthorized, codes[0])
	assert.Equal(t, http.StatusUnauthorized, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}
