package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the accounts table used by [PostgresStore].
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL CHECK (role IN ('CLIENT', 'ADMIN', 'SUPER_ADMIN')),
	status        TEXT NOT NULL CHECK (status IN ('PENDING', 'ACTIVE', 'SUSPENDED')),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS users_role_created_idx ON users (role, created_at DESC);
`

const userColumns = `id, email, name, password_hash, role, status, created_at`

// Pool tuning for the auth workload.
const (
	maxConns        = 20
	minConns        = 2
	maxConnLifetime = time.Hour
	maxConnIdleTime = 10 * time.Minute
	connectTimeout  = 5 * time.Second
)

// DB is the subset of *pgxpool.Pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements [Store] on PostgreSQL.
type PostgresStore struct {
	db  DB
	now func() time.Time
}

// NewPool opens and pings a pgx pool for dsn.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("userstore: invalid DSN: %w", err)
	}
	cfg.MaxConns = maxConns
	cfg.MinConns = minConns
	cfg.MaxConnLifetime = maxConnLifetime
	cfg.MaxConnIdleTime = maxConnIdleTime
	cfg.ConnConfig.ConnectTimeout = connectTimeout

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("userstore: create pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("userstore: ping: %w", err)
	}
	return pool, nil
}

// NewPostgresStore wraps db.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Migrate applies [Schema]. It is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("userstore: migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	if err := prepare(u, s.now()); err != nil {
		return err
	}

	const query = `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.Exec(ctx, query,
		u.ID,
		u.Email,
		u.Name,
		u.PasswordHash,
		string(u.Role),
		string(u.Status),
		u.CreatedAt,
	)
	if err != nil {
		return mapError("create", err)
	}
	return nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.db.QueryRow(ctx, query, NormalizeEmail(email)))
	if err != nil {
		return nil, mapError("find by email", err)
	}
	return u, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("find by id", err)
	}
	return u, nil
}

// ListByRole returns matching users, newest first.
func (s *PostgresStore) ListByRole(ctx context.Context, role officeauth.Role) ([]*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at DESC, id DESC`
	rows, err := s.db.Query(ctx, query, string(role))
	if err != nil {
		return nil, mapError("list by role", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, mapError("list by role", err)
	}
	return users, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) (*User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidUser, status)
	}

	const query = `UPDATE users SET status = $2 WHERE id = $1 RETURNING ` + userColumns
	u, err := scanUser(s.db.QueryRow(ctx, query, id, string(status)))
	if err != nil {
		return nil, mapError("update status", err)
	}
	return u, nil
}

func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if hash == "" {
		return fmt.Errorf("%w: password hash required", ErrInvalidUser)
	}

	tag, err := s.db.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return mapError("update password", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u      User
		role   string
		status string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &status, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = officeauth.Role(role)
	u.Status = Status(status)
	return &u, nil
}

// mapError turns driver errors into the package sentinels.
func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			if pgErr.ConstraintName == "users_pkey" {
				return fmt.Errorf("%w: duplicate id", ErrInvalidUser)
			}
			return ErrDuplicateEmail
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
			return fmt.Errorf("%w: %s", ErrInvalidUser, pgErr.Message)
		}
	}

	return fmt.Errorf("userstore: %s: %w", op, err)
}
