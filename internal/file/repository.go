package file

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectColumns = `id, file_id, name, content_type, hash, bucket, spoiler, width, height`

func scanFile(row pgx.Row) (*File, error) {
	var f File
	if err := row.Scan(&f.ID, &f.FileID, &f.Name, &f.ContentType, &f.Hash, &f.Bucket, &f.Spoiler, &f.Width, &f.Height); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return &f, nil
}

// Repository is the Postgres-backed store for files.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a Repository backed by db.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// FindByHash looks up an existing file sharing hash and bucket, the dedup key from the original's upload flow.
// Returns nil, nil when no such file exists.
func (r *Repository) FindByHash(ctx context.Context, hash, bucket string) (*File, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM files WHERE hash = $1 AND bucket = $2 LIMIT 1`, hash, bucket)
	f, err := scanFile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

// Insert stores a new files row.
func (r *Repository) Insert(ctx context.Context, f File) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO files (id, file_id, name, content_type, hash, bucket, spoiler, width, height)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, f.FileID, f.Name, f.ContentType, f.Hash, f.Bucket, f.Spoiler, f.Width, f.Height,
	)
	return err
}

// GetByID reads a file by id, scoped to bucket the way every fetch route is.
func (r *Repository) GetByID(ctx context.Context, id uint64, bucket string) (*File, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM files WHERE id = $1 AND bucket = $2`, id, bucket)
	f, err := scanFile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return f, err
}

// UpdateDimensions records the probed width/height for fileID. Implements media.DimensionUpdater. fileID here is the
// blob identity (File.FileID), since every row sharing a deduplicated blob should report the same dimensions; the
// update targets every such row in one statement.
func (r *Repository) UpdateDimensions(ctx context.Context, fileID uint64, width, height int) error {
	_, err := r.db.Exec(ctx, `UPDATE files SET width = $1, height = $2 WHERE file_id = $3`, width, height, fileID)
	return err
}
