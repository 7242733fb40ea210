package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/aquanexus/credits-cli/internal/config"
	"github.com/aquanexus/credits-cli/internal/db"
	"github.com/aquanexus/credits-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_project":    `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`,
	"get_session":    `SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = $1`,
	"insert_tx":      `INSERT INTO transactions (id, project_id, buyer_company, amount_paid, transaction_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"mark_sold":      `UPDATE projects SET status = 'sold', verified_by_ai = TRUE, updated_at = $1 WHERE id = $2 AND status = 'available'`,
	"delete_session": `DELETE FROM sessions WHERE id = $1`,
}

const projectColumns = `id, name, crop, technology, region, location, water_savings_m3, price_per_credit,
	risk_score, verified_by_ai, verification_level, ai_description, image_url, status, lat, lng, created_at, updated_at`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *config.PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests (pgxmock) and by
// the seeder, which needs COPY access to the same pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., bulk seeding).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS projects (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name               TEXT NOT NULL DEFAULT '',
	crop               TEXT NOT NULL DEFAULT '',
	technology         TEXT NOT NULL DEFAULT '',
	region             TEXT NOT NULL DEFAULT '',
	location           TEXT NOT NULL DEFAULT '',
	water_savings_m3   DOUBLE PRECISION NOT NULL DEFAULT 0,
	price_per_credit   DOUBLE PRECISION NOT NULL DEFAULT 0,
	risk_score         DOUBLE PRECISION NOT NULL DEFAULT 0,
	verified_by_ai     BOOLEAN NOT NULL DEFAULT FALSE,
	verification_level TEXT NOT NULL DEFAULT '',
	ai_description     TEXT NOT NULL DEFAULT '',
	image_url          TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'available',
	lat                DOUBLE PRECISION,
	lng                DOUBLE PRECISION,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS companies (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name                  TEXT NOT NULL DEFAULT '',
	industry              TEXT NOT NULL DEFAULT '',
	region                TEXT NOT NULL DEFAULT '',
	account_email         TEXT NOT NULL DEFAULT '',
	total_budget          DOUBLE PRECISION NOT NULL DEFAULT 0,
	available_balance_mxn DOUBLE PRECISION NOT NULL DEFAULT 0,
	co2_target_tons       DOUBLE PRECISION NOT NULL DEFAULT 0,
	co2_achieved_tons     DOUBLE PRECISION NOT NULL DEFAULT 0,
	risk_level            TEXT NOT NULL DEFAULT '',
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transactions (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	project_id       TEXT NOT NULL REFERENCES projects(id),
	buyer_company    TEXT NOT NULL,
	amount_paid      DOUBLE PRECISION NOT NULL DEFAULT 0,
	transaction_hash TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS certificates (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	folio           TEXT NOT NULL UNIQUE,
	project_id      TEXT NOT NULL REFERENCES projects(id),
	company         TEXT NOT NULL,
	water_offset_m3 DOUBLE PRECISION NOT NULL DEFAULT 0,
	co2_offset_tons DOUBLE PRECISION NOT NULL DEFAULT 0,
	status          TEXT NOT NULL,
	hash            TEXT NOT NULL,
	period          TEXT NOT NULL DEFAULT '',
	issued_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	company_id    TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id),
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
CREATE INDEX IF NOT EXISTS idx_projects_region ON projects(region);
CREATE INDEX IF NOT EXISTS idx_transactions_project_id ON transactions(project_id);
CREATE INDEX IF NOT EXISTS idx_certificates_company ON certificates(company);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Projects

func (s *PostgresStore) CreateProject(ctx context.Context, p model.Project) (*model.Project, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = model.ProjectAvailable
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		p.ID, p.Name, p.Crop, p.Technology, p.Region, p.Location,
		p.WaterSavingsM3, p.PricePerCredit, p.RiskScore, p.VerifiedByAI,
		p.VerificationLevel, p.Description, p.ImageURL, string(p.Status),
		p.Lat, p.Lng, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert project")
	}
	return &p, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get project %s", id)
	}
	return p, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Region != "" {
		query += fmt.Sprintf(` AND region = $%d`, argIdx)
		args = append(args, filter.Region)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list projects")
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan project")
		}
		projects = append(projects, *p)
	}
	return projects, eris.Wrap(rows.Err(), "postgres: list projects iterate")
}

func (s *PostgresStore) MarkProjectSold(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects SET status = 'sold', verified_by_ai = TRUE, updated_at = $1
		 WHERE id = $2 AND status = 'available'`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark project sold %s", id)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is missing or someone bought it first.
		if _, err := s.GetProject(ctx, id); err != nil {
			return err
		}
		return ErrAlreadySold
	}
	return nil
}

func (s *PostgresStore) UpdateProjectDescription(ctx context.Context, id, description string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects SET ai_description = $1, updated_at = $2 WHERE id = $3`,
		description, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update project description %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListProjectsMissingDescription(ctx context.Context, limit int) ([]model.Project, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE ai_description = '' ORDER BY created_at LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list projects missing description")
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan project")
		}
		projects = append(projects, *p)
	}
	return projects, eris.Wrap(rows.Err(), "postgres: list missing description iterate")
}

// Companies

const companyColumns = `id, name, industry, region, account_email, total_budget, available_balance_mxn,
	co2_target_tons, co2_achieved_tons, risk_level, created_at, updated_at`

func (s *PostgresStore) CreateCompany(ctx context.Context, c model.Company) (*model.Company, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO companies (`+companyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.Name, c.Industry, c.Region, c.Email,
		c.TotalBudgetMXN, c.BalanceMXN, c.CO2TargetTons, c.CO2AchievedTons,
		c.RiskLevel, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert company")
	}
	return &c, nil
}

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get company %s", id)
	}
	return c, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+companyColumns+` FROM companies ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		companies = append(companies, *c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}

func (s *PostgresStore) UpdateCompany(ctx context.Context, c model.Company) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE companies SET name = $1, industry = $2, region = $3, account_email = $4,
		 total_budget = $5, available_balance_mxn = $6, co2_target_tons = $7,
		 co2_achieved_tons = $8, risk_level = $9, updated_at = $10
		 WHERE id = $11`,
		c.Name, c.Industry, c.Region, c.Email,
		c.TotalBudgetMXN, c.BalanceMXN, c.CO2TargetTons, c.CO2AchievedTons,
		c.RiskLevel, time.Now().UTC(), c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company %s", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Transactions

func (s *PostgresStore) CreateTransaction(ctx context.Context, tx model.Transaction) (*model.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO transactions (id, project_id, buyer_company, amount_paid, transaction_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		tx.ID, tx.ProjectID, tx.BuyerCompany, tx.AmountPaidMXN, tx.Hash, tx.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert transaction")
	}
	return &tx, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, buyer_company, amount_paid, transaction_hash, created_at
		 FROM transactions ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list transactions")
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		var tx model.Transaction
		if err := rows.Scan(&tx.ID, &tx.ProjectID, &tx.BuyerCompany, &tx.AmountPaidMXN, &tx.Hash, &tx.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan transaction")
		}
		txs = append(txs, tx)
	}
	return txs, eris.Wrap(rows.Err(), "postgres: list transactions iterate")
}

// Certificates

func (s *PostgresStore) CreateCertificate(ctx context.Context, cert model.Certificate) (*model.Certificate, error) {
	if cert.ID == "" {
		cert.ID = uuid.New().String()
	}
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO certificates (id, folio, project_id, company, water_offset_m3, co2_offset_tons, status, hash, period, issued_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		cert.ID, cert.Folio, cert.ProjectID, cert.Company,
		cert.WaterOffsetM3, cert.CO2OffsetTons, string(cert.Status),
		cert.Hash, cert.Period, cert.IssuedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert certificate")
	}
	return &cert, nil
}

func (s *PostgresStore) ListCertificates(ctx context.Context, company string) ([]model.Certificate, error) {
	query := `SELECT id, folio, project_id, company, water_offset_m3, co2_offset_tons, status, hash, period, issued_at
	          FROM certificates`
	args := []any{}
	if company != "" {
		query += ` WHERE company = $1`
		args = append(args, company)
	}
	query += ` ORDER BY issued_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list certificates")
	}
	defer rows.Close()

	var certs []model.Certificate
	for rows.Next() {
		var c model.Certificate
		if err := rows.Scan(&c.ID, &c.Folio, &c.ProjectID, &c.Company,
			&c.WaterOffsetM3, &c.CO2OffsetTons, &c.Status, &c.Hash, &c.Period, &c.IssuedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan certificate")
		}
		certs = append(certs, c)
	}
	return certs, eris.Wrap(rows.Err(), "postgres: list certificates iterate")
}

func (s *PostgresStore) CountCertificates(ctx context.Context, year int) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM certificates WHERE date_part('year', issued_at) = $1`,
		year,
	).Scan(&count)
	return count, eris.Wrap(err, "postgres: count certificates")
}

// Users and sessions

func (s *PostgresStore) CreateUser(ctx context.Context, u model.User) (*model.User, error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, company_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.PasswordHash, u.CompanyID, u.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert user")
	}
	return &u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, email, password_hash, company_id, created_at FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, email, password_hash, company_id, created_at FROM users WHERE email = $1`, email)
}

func (s *PostgresStore) getUser(ctx context.Context, query, arg string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CompanyID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: get user")
	}
	return &u, nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess model.Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		sess.ID, sess.UserID, sess.ExpiresAt, sess.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert session")
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = $1`, id).
		Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: get session")
	}
	return &sess, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: delete session")
}

func (s *PostgresStore) DeleteExpiredSessions(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired sessions")
	}
	return int(tag.RowsAffected()), nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanProject(row scannable) (*model.Project, error) {
	var p model.Project
	err := row.Scan(&p.ID, &p.Name, &p.Crop, &p.Technology, &p.Region, &p.Location,
		&p.WaterSavingsM3, &p.PricePerCredit, &p.RiskScore, &p.VerifiedByAI,
		&p.VerificationLevel, &p.Description, &p.ImageURL, &p.Status,
		&p.Lat, &p.Lng, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanCompany(row scannable) (*model.Company, error) {
	var c model.Company
	err := row.Scan(&c.ID, &c.Name, &c.Industry, &c.Region, &c.Email,
		&c.TotalBudgetMXN, &c.BalanceMXN, &c.CO2TargetTons, &c.CO2AchievedTons,
		&c.RiskLevel, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
