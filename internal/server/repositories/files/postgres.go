package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/dbx"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
)

const selectColumns = `id, bucket, path, type, label, mime_type, size_bytes, sha256, created_at`

// PostgresRepository implements the catalog over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts file and fills CreatedAt from the database.
func (r *PostgresRepository) Create(ctx context.Context, file *models.FileRecord) error {
	query := `
		INSERT INTO files (id, bucket, path, type, label, mime_type, size_bytes, sha256)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.Bucket, file.Path, file.Type, file.Label, file.MimeType, file.SizeBytes, file.SHA256,
	).Scan(&file.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

// FindBySHA256 tolerates several rows per digest and returns the oldest.
func (r *PostgresRepository) FindBySHA256(ctx context.Context, digest string) (*models.FileRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM files
		WHERE sha256=$1
		ORDER BY created_at, id
		LIMIT 1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, digest))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find file by hash: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM files WHERE id=$1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id=$1`, id); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Lock(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, id); err != nil {
		return fmt.Errorf("failed to lock file: %w", err)
	}
	return nil
}

func scanFile(row *sql.Row) (*models.FileRecord, error) {
	f := &models.FileRecord{}
	err := row.Scan(&f.ID, &f.Bucket, &f.Path, &f.Type, &f.Label, &f.MimeType, &f.SizeBytes, &f.SHA256, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}
