package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Backend keeps the state document in a single JSONB row.
type Backend struct {
	pool *pgxpool.Pool
}

func NewBackend(pool *pgxpool.Pool) *Backend {
	return &Backend{pool: pool}
}

func (b *Backend) Load(ctx context.Context) ([]byte, bool, error) {
	var data []byte
	err := b.pool.QueryRow(ctx, `SELECT data FROM app_state WHERE id = 1`).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load state: %w", err)
	}
	return data, true, nil
}

func (b *Backend) Save(ctx context.Context, data []byte) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO app_state (id, data, updated_at) VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		data)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
