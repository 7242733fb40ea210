package server

import (
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aquanexus/credits-cli/internal/catalog"
	"github.com/aquanexus/credits-cli/internal/model"
	"github.com/aquanexus/credits-cli/internal/store"
)

// Dashboard aggregates the landing view in one response. Sections that fail
// to load come back empty rather than failing the whole page; Degraded names
// the sections that did.
type Dashboard struct {
	Totals       catalog.Totals      `json:"aggregates"`
	Projects     int                 `json:"projectCount"`
	Available    int                 `json:"availableCount"`
	Transactions []model.Transaction `json:"recentTransactions"`
	Companies    int                 `json:"companyCount"`
	Degraded     []string            `json:"degraded,omitempty"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		projects  []model.Project
		txs       []model.Transaction
		companies []model.Company
		failed    = make(chan string, 3)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if projects, err = s.store.ListProjects(gctx, store.ProjectFilter{Limit: 500}); err != nil {
			zap.L().Warn("dashboard projects", zap.Error(err))
			failed <- "projects"
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if txs, err = s.store.ListTransactions(gctx, 20); err != nil {
			zap.L().Warn("dashboard transactions", zap.Error(err))
			failed <- "transactions"
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if companies, err = s.store.ListCompanies(gctx); err != nil {
			zap.L().Warn("dashboard companies", zap.Error(err))
			failed <- "companies"
		}
		return nil
	})
	_ = g.Wait()
	close(failed)

	available := 0
	for _, p := range projects {
		if p.Status == model.ProjectAvailable {
			available++
		}
	}
	if txs == nil {
		txs = []model.Transaction{}
	}

	d := Dashboard{
		Totals:       catalog.Aggregate(catalog.NormalizeProjects(projects)),
		Projects:     len(projects),
		Available:    available,
		Transactions: txs,
		Companies:    len(companies),
	}
	for name := range failed {
		d.Degraded = append(d.Degraded, name)
	}
	respondJSON(w, http.StatusOK, d)
}
