package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vegnbio/restobook/internal/repository"

	"github.com/jackc/pgx/v5"
)

// Provider resolves account contact data. Accounts live in a separate
// service; this core only reads the users table it maintains.
type Provider interface {
	EmailByUserID(ctx context.Context, userID int64) (string, error)
	UserIDByEmail(ctx context.Context, email string) (int64, error)
	EmailsByUserIDs(ctx context.Context, userIDs []int64) ([]string, error)
}

type PostgresProvider struct {
	pool *pgxpool.Pool
}

func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

func (p *PostgresProvider) EmailByUserID(ctx context.Context, userID int64) (string, error) {
	const op = "identity.PostgresProvider.EmailByUserID"

	var email string
	err := p.pool.QueryRow(ctx,
		`SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	if err == pgx.ErrNoRows {
		return "", fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return email, nil
}

func (p *PostgresProvider) UserIDByEmail(ctx context.Context, email string) (int64, error) {
	const op = "identity.PostgresProvider.UserIDByEmail"

	var id int64
	err := p.pool.QueryRow(ctx,
		`SELECT id FROM users WHERE lower(email) = lower($1)`, email).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (p *PostgresProvider) EmailsByUserIDs(ctx context.Context, userIDs []int64) ([]string, error) {
	const op = "identity.PostgresProvider.EmailsByUserIDs"

	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := p.pool.Query(ctx,
		`SELECT email FROM users WHERE id = ANY($1)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
