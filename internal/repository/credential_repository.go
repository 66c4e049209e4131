package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/northwind-service/internal/domain"
)

// CredentialRepository reads stored accounts for login.
type CredentialRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.Credential, error)
}

// CredentialWriter provisions accounts. Only the admin tooling writes credentials.
type CredentialWriter interface {
	Upsert(ctx context.Context, cred *domain.Credential) error
}

type credentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository returns a Postgres-backed implementation.
func NewCredentialRepository(pool *pgxpool.Pool) CredentialRepository {
	return &credentialRepository{pool: pool}
}

// NewCredentialWriter returns the Postgres-backed writer.
func NewCredentialWriter(pool *pgxpool.Pool) CredentialWriter {
	return &credentialRepository{pool: pool}
}

func (r *credentialRepository) GetByUsername(ctx context.Context, username string) (*domain.Credential, error) {
	if r.pool == nil {
		return nil, ErrUnavailable
	}

	const query = `
        SELECT id, username, password, roles, enabled
        FROM users WHERE username=$1`

	var cred domain.Credential
	if err := r.pool.QueryRow(ctx, query, username).Scan(
		&cred.ID,
		&cred.Username,
		&cred.PasswordHash,
		&cred.Roles,
		&cred.Enabled,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cred, nil
}

// Upsert inserts the account or replaces password, roles and enabled flag of an
// existing one with the same username.
func (r *credentialRepository) Upsert(ctx context.Context, cred *domain.Credential) error {
	if r.pool == nil {
		return ErrUnavailable
	}

	const query = `
        INSERT INTO users (username, password, roles, enabled)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (username) DO UPDATE
        SET password = EXCLUDED.password, roles = EXCLUDED.roles, enabled = EXCLUDED.enabled
        RETURNING id`

	return r.pool.QueryRow(ctx, query,
		cred.Username,
		cred.PasswordHash,
		cred.Roles,
		cred.Enabled,
	).Scan(&cred.ID)
}
