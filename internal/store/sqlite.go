package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/aquanexus/credits-cli/internal/model"
)

// SQLiteStore implements Store on a local SQLite file. Used for single-node
// deployments and offline CLI work where a Postgres server is overkill.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies pragmas for
// concurrent read access.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS projects (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL DEFAULT '',
	crop               TEXT NOT NULL DEFAULT '',
	technology         TEXT NOT NULL DEFAULT '',
	region             TEXT NOT NULL DEFAULT '',
	location           TEXT NOT NULL DEFAULT '',
	water_savings_m3   REAL NOT NULL DEFAULT 0,
	price_per_credit   REAL NOT NULL DEFAULT 0,
	risk_score         REAL NOT NULL DEFAULT 0,
	verified_by_ai     INTEGER NOT NULL DEFAULT 0,
	verification_level TEXT NOT NULL DEFAULT '',
	ai_description     TEXT NOT NULL DEFAULT '',
	image_url          TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'available',
	lat                REAL,
	lng                REAL,
	created_at         TIMESTAMP NOT NULL,
	updated_at         TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS companies (
	id                    TEXT PRIMARY KEY,
	name                  TEXT NOT NULL DEFAULT '',
	industry              TEXT NOT NULL DEFAULT '',
	region                TEXT NOT NULL DEFAULT '',
	account_email         TEXT NOT NULL DEFAULT '',
	total_budget          REAL NOT NULL DEFAULT 0,
	available_balance_mxn REAL NOT NULL DEFAULT 0,
	co2_target_tons       REAL NOT NULL DEFAULT 0,
	co2_achieved_tons     REAL NOT NULL DEFAULT 0,
	risk_level            TEXT NOT NULL DEFAULT '',
	created_at            TIMESTAMP NOT NULL,
	updated_at            TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id               TEXT PRIMARY KEY,
	project_id       TEXT NOT NULL REFERENCES projects(id),
	buyer_company    TEXT NOT NULL,
	amount_paid      REAL NOT NULL DEFAULT 0,
	transaction_hash TEXT NOT NULL,
	created_at       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS certificates (
	id              TEXT PRIMARY KEY,
	folio           TEXT NOT NULL UNIQUE,
	project_id      TEXT NOT NULL REFERENCES projects(id),
	company         TEXT NOT NULL,
	water_offset_m3 REAL NOT NULL DEFAULT 0,
	co2_offset_tons REAL NOT NULL DEFAULT 0,
	status          TEXT NOT NULL,
	hash            TEXT NOT NULL,
	period          TEXT NOT NULL DEFAULT '',
	issued_at       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	company_id    TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id),
	expires_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
CREATE INDEX IF NOT EXISTS idx_projects_region ON projects(region);
CREATE INDEX IF NOT EXISTS idx_transactions_project_id ON transactions(project_id);
CREATE INDEX IF NOT EXISTS idx_certificates_company ON certificates(company);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return eris.Wrap(s.db.Close(), "sqlite: close")
}

// Projects

func (s *SQLiteStore) CreateProject(ctx context.Context, p model.Project) (*model.Project, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = model.ProjectAvailable
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Crop, p.Technology, p.Region, p.Location,
		p.WaterSavingsM3, p.PricePerCredit, p.RiskScore, p.VerifiedByAI,
		p.VerificationLevel, p.Description, p.ImageURL, string(p.Status),
		p.Lat, p.Lng, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert project")
	}
	return &p, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get project %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Region != "" {
		query += ` AND region = ?`
		args = append(args, filter.Region)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list projects")
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan project")
		}
		projects = append(projects, *p)
	}
	return projects, eris.Wrap(rows.Err(), "sqlite: list projects iterate")
}

func (s *SQLiteStore) MarkProjectSold(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET status = 'sold', verified_by_ai = 1, updated_at = ?
		 WHERE id = ? AND status = 'available'`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark project sold %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		if _, err := s.GetProject(ctx, id); err != nil {
			return err
		}
		return ErrAlreadySold
	}
	return nil
}

func (s *SQLiteStore) UpdateProjectDescription(ctx context.Context, id, description string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET ai_description = ?, updated_at = ? WHERE id = ?`,
		description, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update project description %s", id)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) ListProjectsMissingDescription(ctx context.Context, limit int) ([]model.Project, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE ai_description = '' ORDER BY created_at LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list projects missing description")
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan project")
		}
		projects = append(projects, *p)
	}
	return projects, eris.Wrap(rows.Err(), "sqlite: list missing description iterate")
}

// Companies

func (s *SQLiteStore) CreateCompany(ctx context.Context, c model.Company) (*model.Company, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (`+companyColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Industry, c.Region, c.Email,
		c.TotalBudgetMXN, c.BalanceMXN, c.CO2TargetTons, c.CO2AchievedTons,
		c.RiskLevel, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert company")
	}
	return &c, nil
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = ?`, id)
	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get company %s", id)
	}
	return c, nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+companyColumns+` FROM companies ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		companies = append(companies, *c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

func (s *SQLiteStore) UpdateCompany(ctx context.Context, c model.Company) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET name = ?, industry = ?, region = ?, account_email = ?,
		 total_budget = ?, available_balance_mxn = ?, co2_target_tons = ?,
		 co2_achieved_tons = ?, risk_level = ?, updated_at = ?
		 WHERE id = ?`,
		c.Name, c.Industry, c.Region, c.Email,
		c.TotalBudgetMXN, c.BalanceMXN, c.CO2TargetTons, c.CO2AchievedTons,
		c.RiskLevel, time.Now().UTC(), c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company %s", c.ID)
	}
	return checkRowsAffected(res)
}

// Transactions

func (s *SQLiteStore) CreateTransaction(ctx context.Context, tx model.Transaction) (*model.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, project_id, buyer_company, amount_paid, transaction_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.ProjectID, tx.BuyerCompany, tx.AmountPaidMXN, tx.Hash, tx.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert transaction")
	}
	return &tx, nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, buyer_company, amount_paid, transaction_hash, created_at
		 FROM transactions ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list transactions")
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		var tx model.Transaction
		if err := rows.Scan(&tx.ID, &tx.ProjectID, &tx.BuyerCompany, &tx.AmountPaidMXN, &tx.Hash, &tx.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan transaction")
		}
		txs = append(txs, tx)
	}
	return txs, eris.Wrap(rows.Err(), "sqlite: list transactions iterate")
}

// Certificates

func (s *SQLiteStore) CreateCertificate(ctx context.Context, cert model.Certificate) (*model.Certificate, error) {
	if cert.ID == "" {
		cert.ID = uuid.New().String()
	}
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO certificates (id, folio, project_id, company, water_offset_m3, co2_offset_tons, status, hash, period, issued_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cert.ID, cert.Folio, cert.ProjectID, cert.Company,
		cert.WaterOffsetM3, cert.CO2OffsetTons, string(cert.Status),
		cert.Hash, cert.Period, cert.IssuedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert certificate")
	}
	return &cert, nil
}

func (s *SQLiteStore) ListCertificates(ctx context.Context, company string) ([]model.Certificate, error) {
	query := `SELECT id, folio, project_id, company, water_offset_m3, co2_offset_tons, status, hash, period, issued_at
	          FROM certificates`
	args := []any{}
	if company != "" {
		query += ` WHERE company = ?`
		args = append(args, company)
	}
	query += ` ORDER BY issued_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list certificates")
	}
	defer rows.Close()

	var certs []model.Certificate
	for rows.Next() {
		var c model.Certificate
		if err := rows.Scan(&c.ID, &c.Folio, &c.ProjectID, &c.Company,
			&c.WaterOffsetM3, &c.CO2OffsetTons, &c.Status, &c.Hash, &c.Period, &c.IssuedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan certificate")
		}
		certs = append(certs, c)
	}
	return certs, eris.Wrap(rows.Err(), "sqlite: list certificates iterate")
}

func (s *SQLiteStore) CountCertificates(ctx context.Context, year int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM certificates WHERE strftime('%Y', issued_at) = ?`,
		fmt.Sprintf("%04d", year),
	).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count certificates")
}

// Users and sessions

func (s *SQLiteStore) CreateUser(ctx context.Context, u model.User) (*model.User, error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, company_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CompanyID, u.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert user")
	}
	return &u, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, email, password_hash, company_id, created_at FROM users WHERE id = ?`, id)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, email, password_hash, company_id, created_at FROM users WHERE email = ?`, email)
}

func (s *SQLiteStore) getUser(ctx context.Context, query, arg string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CompanyID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "sqlite: get user")
	}
	return &u, nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess model.Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.ExpiresAt, sess.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert session")
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "sqlite: get session")
	}
	return &sess, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: delete session")
}

func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
