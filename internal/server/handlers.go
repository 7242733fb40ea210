package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aquanexus/credits-cli/internal/auth"
	"github.com/aquanexus/credits-cli/internal/catalog"
	"github.com/aquanexus/credits-cli/internal/market"
	"github.com/aquanexus/credits-cli/internal/model"
	"github.com/aquanexus/credits-cli/internal/store"
)

// Auth

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		CompanyID string `json:"company_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := s.auth.Register(r.Context(), req.Email, req.Password, req.CompanyID)
	if err != nil {
		if errors.Is(err, auth.ErrBadEmail) || errors.Is(err, auth.ErrWeakPassword) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("register failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	respondJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		zap.L().Error("login failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	s.auth.SetCookie(w, sess)
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		if err := s.auth.Logout(r.Context(), cookie.Value); err != nil {
			zap.L().Warn("logout", zap.Error(err))
		}
	}
	s.auth.ClearCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	respondJSON(w, http.StatusOK, u)
}

// Projects

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ProjectFilter{
		Status: model.ProjectStatus(q.Get("status")),
		Region: q.Get("region"),
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = n
	}

	projects, err := s.store.ListProjects(r.Context(), filter)
	if err != nil {
		zap.L().Error("list projects", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "list projects failed")
		return
	}
	if projects == nil {
		projects = []model.Project{}
	}
	respondJSON(w, http.StatusOK, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "project not found")
			return
		}
		zap.L().Error("get project", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "get project failed")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p model.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := s.store.CreateProject(r.Context(), p)
	if err != nil {
		zap.L().Error("create project", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "create project failed")
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleAuditProject(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		respondError(w, http.StatusServiceUnavailable, "satellite audit not configured")
		return
	}
	p, err := s.store.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "project not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "get project failed")
		return
	}

	report, err := s.analyzer.Audit(r.Context(), p)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Catalog

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	projects, err := s.store.ListProjects(r.Context(), store.ProjectFilter{Limit: 500})
	if err != nil {
		zap.L().Error("catalog projects", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "catalog failed")
		return
	}

	filter := catalog.Filter{
		Search:       q.Get("search"),
		Region:       q.Get("region"),
		Industry:     q.Get("industry"),
		Verification: q.Get("verificationLevel"),
	}
	view := catalog.Assemble(
		catalog.NormalizeProjects(projects),
		filter,
		catalog.SortKey(q.Get("sortBy")),
		q.Get("selected"),
	)
	respondJSON(w, http.StatusOK, view)
}

// Companies

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.store.ListCompanies(r.Context())
	if err != nil {
		zap.L().Error("list companies", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "list companies failed")
		return
	}
	if companies == nil {
		companies = []model.Company{}
	}
	respondJSON(w, http.StatusOK, companies)
}

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCompany(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "company not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "get company failed")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// Market

func (s *Server) handleBuyCredits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID string `json:"project_id"`
		Company   string `json:"company"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := s.market.Buy(r.Context(), req.ProjectID, req.Company)
	if err != nil {
		switch {
		case errors.Is(err, market.ErrNoBuyer):
			respondError(w, http.StatusBadRequest, "company is required")
		case errors.Is(err, market.ErrProjectNotFound):
			respondError(w, http.StatusNotFound, "project not found")
		case errors.Is(err, market.ErrProjectSold):
			respondError(w, http.StatusConflict, "project already sold")
		default:
			zap.L().Error("buy credits", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "purchase failed")
		}
		return
	}
	respondJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleListCertificates(w http.ResponseWriter, r *http.Request) {
	certs, err := s.store.ListCertificates(r.Context(), r.URL.Query().Get("company"))
	if err != nil {
		zap.L().Error("list certificates", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "list certificates failed")
		return
	}
	if certs == nil {
		certs = []model.Certificate{}
	}
	respondJSON(w, http.StatusOK, certs)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = n
	}
	txs, err := s.store.ListTransactions(r.Context(), limit)
	if err != nil {
		zap.L().Error("list transactions", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "list transactions failed")
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	respondJSON(w, http.StatusOK, txs)
}

// Map

func (s *Server) handleMapFeatures(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context(), store.ProjectFilter{Limit: 500})
	if err != nil {
		zap.L().Error("map features", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "map features failed")
		return
	}

	features := make([]model.MapFeature, 0, len(projects))
	for _, p := range projects {
		if f, ok := model.MapFeatureOf(p); ok {
			features = append(features, f)
		}
	}
	respondJSON(w, http.StatusOK, features)
}

func (s *Server) handleMapConfig(w http.ResponseWriter, _ *http.Request) {
	if s.mapToken == "" {
		respondError(w, http.StatusServiceUnavailable, "map not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"accessToken": s.mapToken})
}

// Uploads

const maxUploadBytes = 10 << 20 // 10 MiB

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.uploader == nil {
		respondError(w, http.StatusServiceUnavailable, "uploads not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image field is required")
		return
	}
	defer file.Close()

	url, err := s.uploader.UploadThumbnail(r.Context(), header.Filename, file)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"url": url})
}
