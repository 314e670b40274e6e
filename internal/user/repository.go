package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/eludris-go/eludris/internal/postgres"
)

const selectColumns = `id, username, display_name, social_credit, status_type, status_text, bio, avatar_id,
	banner_id, badges, permissions, email, verified, is_deleted, password_hash, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var statusType string
	err := row.Scan(
		&u.ID, &u.Username, &u.DisplayName, &u.SocialCredit, &statusType, &u.Status.Text, &u.Bio, &u.AvatarID,
		&u.BannerID, &u.Badges, &u.Permissions, &u.Email, &u.Verified, &u.IsDeleted, &u.PasswordHash, &u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Status.Type = StatusType(statusType)
	return &u, nil
}

// Repository is the Postgres-backed store for users.
type Repository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewRepository creates a Repository backed by db.
func NewRepository(db *pgxpool.Pool, logger zerolog.Logger) *Repository {
	return &Repository{db: db, log: logger}
}

// FindLive looks up a non-deleted user by username or email, used for the create-time conflict check (§4.4).
func (r *Repository) FindLive(ctx context.Context, username, email string) (*User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM users WHERE NOT is_deleted AND (lower(username) = lower($1) OR lower(email) = lower($2))`,
		username, email,
	)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// DeleteTombstoned removes a tombstoned row sharing username or email, clearing the way for a fresh Create.
func (r *Repository) DeleteTombstoned(ctx context.Context, username, email string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM users WHERE is_deleted AND (lower(username) = lower($1) OR lower(email) = lower($2))`,
		username, email,
	)
	return err
}

// Insert creates a user row with the given id and verified flag.
func (r *Repository) Insert(ctx context.Context, id uint64, username, email, passwordHash string, verified bool) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, verified) VALUES ($1, $2, $3, $4, $5)`,
		id, username, email, passwordHash, verified,
	)
	if postgres.IsUniqueViolation(err) {
		return ErrRaceConflict
	}
	return err
}

// GetByID reads a live user by id.
func (r *Repository) GetByID(ctx context.Context, id uint64) (*User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM users WHERE id = $1 AND NOT is_deleted`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// GetByUsername reads a live user by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM users WHERE lower(username) = lower($1) AND NOT is_deleted`, username)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// SetVerified marks a user verified.
func (r *Repository) SetVerified(ctx context.Context, id uint64) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET verified = TRUE WHERE id = $1`, id)
	return err
}

// UpdateAccount applies username/email/password changes. Any nil field is left unchanged.
func (r *Repository) UpdateAccount(ctx context.Context, id uint64, username, email, passwordHash *string) (*User, error) {
	var sets []string
	var args []any
	n := 1
	if username != nil {
		sets = append(sets, fmt.Sprintf("username = $%d", n))
		args = append(args, *username)
		n++
	}
	if email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", n))
		args = append(args, *email)
		n++
	}
	if passwordHash != nil {
		sets = append(sets, fmt.Sprintf("password_hash = $%d", n))
		args = append(args, *passwordHash)
		n++
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), n, selectColumns)
	row := r.db.QueryRow(ctx, query, args...)
	u, err := scanUser(row)
	if postgres.IsUniqueViolation(err) {
		return nil, ErrRaceConflict
	}
	return u, err
}

// UpdateProfile applies a partial profile update. Any nil field is left unchanged.
func (r *Repository) UpdateProfile(ctx context.Context, id uint64, p ProfileParams) (*User, error) {
	var sets []string
	var args []any
	n := 1
	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, n))
		args = append(args, val)
		n++
	}
	if p.DisplayName != nil {
		add("display_name", *p.DisplayName)
	}
	if p.Bio != nil {
		add("bio", *p.Bio)
	}
	if p.StatusText != nil {
		add("status_text", *p.StatusText)
	}
	if p.StatusType != nil {
		add("status_type", string(*p.StatusType))
	}
	if p.AvatarID != nil {
		add("avatar_id", *p.AvatarID)
	}
	if p.BannerID != nil {
		add("banner_id", *p.BannerID)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), n, selectColumns)
	row := r.db.QueryRow(ctx, query, args...)
	return scanUser(row)
}

// MarkDeleted tombstones a user, returning its username/email for the notification email.
func (r *Repository) MarkDeleted(ctx context.Context, id uint64) (username, email string, err error) {
	err = r.db.QueryRow(ctx,
		`UPDATE users SET is_deleted = TRUE WHERE id = $1 RETURNING username, email`, id,
	).Scan(&username, &email)
	return username, email, err
}

// UsernameForEmail returns the username of the live user holding email, used by create-password-reset-code.
func (r *Repository) UsernameForEmail(ctx context.Context, email string) (string, error) {
	var username string
	err := r.db.QueryRow(ctx, `SELECT username FROM users WHERE lower(email) = lower($1) AND NOT is_deleted`, email).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return username, err
}

// SetPasswordByEmail updates the password hash of the live user holding email, returning its username for the
// notification email.
func (r *Repository) SetPasswordByEmail(ctx context.Context, email, passwordHash string) (username string, err error) {
	err = r.db.QueryRow(ctx,
		`UPDATE users SET password_hash = $1 WHERE lower(email) = lower($2) AND NOT is_deleted RETURNING username`,
		passwordHash, email,
	).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return username, err
}

// FileExists reports whether a file id exists in the given bucket, used to validate avatar_id/banner_id references.
func (r *Repository) FileExists(ctx context.Context, fileID uint64, bucket string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM files WHERE file_id = $1 AND bucket = $2)`, fileID, bucket,
	).Scan(&exists)
	return exists, err
}

// DeleteUnverified removes every unverified user whose snowflake timestamp is older than maxAgeMS milliseconds,
// measured against nowMS. Grounded on the original's `clean_up_unverified` query.
func (r *Repository) DeleteUnverified(ctx context.Context, nowMS, maxAgeMS int64) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("delete unverified users: database pool is nil")
	}
	// id >> 16 is whole seconds since the snowflake epoch (Unix 1,650,000,000); convert it to Unix milliseconds.
	tag, err := r.db.Exec(ctx,
		`DELETE FROM users WHERE NOT verified AND ($1 - ((id >> 16) + 1650000000) * 1000) > $2`, nowMS, maxAgeMS,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeDeleted drops every tombstoned row outright.
func (r *Repository) PurgeDeleted(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("purge tombstoned users: database pool is nil")
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE is_deleted`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

