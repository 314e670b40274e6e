// Package secret manages the single per-instance HMAC key used to sign session tokens.
package secret

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eludris-go/eludris/internal/postgres"
)

// Length is the fixed size of the instance secret in bytes.
const Length = 128

// Store reads or creates the instance secret, persisted in the single-row meta table.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Get returns the instance secret, creating and persisting a new random one if the meta table is empty. Concurrent
// first calls serialize on a lock of the meta table inside the insert transaction; the later one finds the row the
// earlier one committed, skips its own insert, and reads back that value rather than erroring.
func (s *Store) Get(ctx context.Context) ([Length]byte, error) {
	var out [Length]byte

	var existing []byte
	err := s.db.QueryRow(ctx, `SELECT secret FROM meta LIMIT 1`).Scan(&existing)
	if err == nil {
		copy(out[:], existing)
		return out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return out, fmt.Errorf("read instance secret: %w", err)
	}

	fresh := make([]byte, Length)
	if _, err := rand.Read(fresh); err != nil {
		return out, fmt.Errorf("generate instance secret: %w", err)
	}

	err = postgres.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE meta IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("lock meta table: %w", err)
		}
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM meta`).Scan(&count); err != nil {
			return fmt.Errorf("recheck meta row count: %w", err)
		}
		if count > 0 {
			return nil
		}
		_, err := tx.Exec(ctx, `INSERT INTO meta (secret) VALUES ($1)`, fresh)
		return err
	})
	if err != nil {
		return out, fmt.Errorf("persist instance secret: %w", err)
	}

	err = s.db.QueryRow(ctx, `SELECT secret FROM meta LIMIT 1`).Scan(&existing)
	if err != nil {
		return out, fmt.Errorf("read instance secret after create: %w", err)
	}
	copy(out[:], existing)
	return out, nil
}
