// Package store provides persistence for the marketplace tables behind a
// single interface with Postgres and SQLite implementations.
package store

import (
	"context"
	"errors"

	"github.com/aquanexus/credits-cli/internal/model"
)

// Sentinel errors shared by both backends so callers can map them to
// transport-level responses.
var (
	ErrNotFound    = errors.New("store: not found")
	ErrAlreadySold = errors.New("store: project already sold")
)

// ProjectFilter specifies criteria for listing projects.
type ProjectFilter struct {
	Status model.ProjectStatus `json:"status,omitempty"`
	Region string              `json:"region,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// Store defines the persistence interface for the marketplace.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p model.Project) (*model.Project, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error)
	MarkProjectSold(ctx context.Context, id string) error
	UpdateProjectDescription(ctx context.Context, id, description string) error
	ListProjectsMissingDescription(ctx context.Context, limit int) ([]model.Project, error)

	// Companies
	CreateCompany(ctx context.Context, c model.Company) (*model.Company, error)
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	ListCompanies(ctx context.Context) ([]model.Company, error)
	UpdateCompany(ctx context.Context, c model.Company) error

	// Transactions
	CreateTransaction(ctx context.Context, tx model.Transaction) (*model.Transaction, error)
	ListTransactions(ctx context.Context, limit int) ([]model.Transaction, error)

	// Certificates
	CreateCertificate(ctx context.Context, cert model.Certificate) (*model.Certificate, error)
	ListCertificates(ctx context.Context, company string) ([]model.Certificate, error)
	CountCertificates(ctx context.Context, year int) (int, error)

	// Users and sessions
	CreateUser(ctx context.Context, u model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateSession(ctx context.Context, s model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
