package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Session is one row of the sessions table: a long-lived credential for a single client/platform pairing.
type Session struct {
	ID       uint64
	UserID   uint64
	Platform string
	Client   string
	IP       string
}

// credential is the subset of a users row needed to authenticate an identifier/password pair.
type credential struct {
	ID           uint64
	PasswordHash string
}

// Repository is the Postgres-backed store for sessions, joined against users for tombstone and credential checks.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a Repository backed by db.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// FindCredential looks up a non-deleted user whose username or email matches identifier (case-insensitively).
func (r *Repository) FindCredential(ctx context.Context, identifier string) (credential, error) {
	var c credential
	err := r.db.QueryRow(ctx,
		`SELECT id, password_hash FROM users
		 WHERE NOT is_deleted AND (lower(username) = lower($1) OR lower(email) = lower($1))`,
		identifier,
	).Scan(&c.ID, &c.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return credential{}, ErrUserNotFound
	}
	return c, err
}

// credentialByID looks up a user's password hash by id, used for the password re-authentication DeleteSession
// requires.
func (r *Repository) credentialByID(ctx context.Context, id uint64) (credential, error) {
	var c credential
	err := r.db.QueryRow(ctx,
		`SELECT id, password_hash FROM users WHERE id = $1 AND NOT is_deleted`, id,
	).Scan(&c.ID, &c.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return credential{}, ErrUserNotFound
	}
	return c, err
}

// Insert persists a new session row.
func (r *Repository) Insert(ctx context.Context, s Session) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (id, user_id, platform, client, ip) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.UserID, s.Platform, s.Client, s.IP,
	)
	return err
}

// Find returns the session matching (id, userID), failing if the owning user is tombstoned (§4.3's
// "joined with users" requirement).
func (r *Repository) Find(ctx context.Context, id, userID uint64) (Session, error) {
	var s Session
	err := r.db.QueryRow(ctx,
		`SELECT s.id, s.user_id, s.platform, s.client, s.ip
		 FROM sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.id = $1 AND s.user_id = $2 AND NOT u.is_deleted`,
		id, userID,
	).Scan(&s.ID, &s.UserID, &s.Platform, &s.Client, &s.IP)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrInvalidToken
	}
	return s, err
}

// List returns every session belonging to userID, most recent first.
func (r *Repository) List(ctx context.Context, userID uint64) ([]Session, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, platform, client, ip FROM sessions WHERE user_id = $1 ORDER BY id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Platform, &s.Client, &s.IP); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Delete removes the session (id, userID) and returns the number of sessions remaining for that user. found is false
// when no row matched, meaning the caller should report NOT_FOUND.
func (r *Repository) Delete(ctx context.Context, id, userID uint64) (remaining int64, found bool, err error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, false, err
	}
	if tag.RowsAffected() == 0 {
		return 0, false, nil
	}
	err = r.db.QueryRow(ctx, `SELECT count(*) FROM sessions WHERE user_id = $1`, userID).Scan(&remaining)
	return remaining, true, err
}
