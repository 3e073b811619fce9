package links

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/weldkeeper/internal/dbx"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, link models.FileLink) error {
	query := `
		INSERT INTO file_links (file_id, entity_type, entity_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (file_id, entity_type, entity_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, link.FileID, link.Entity.Type, link.Entity.ID); err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, link models.FileLink) error {
	query := `DELETE FROM file_links WHERE file_id=$1 AND entity_type=$2 AND entity_id=$3`

	if _, err := r.db.ExecContext(ctx, query, link.FileID, link.Entity.Type, link.Entity.ID); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByEntity(ctx context.Context, ref models.EntityRef) ([]string, error) {
	query := `DELETE FROM file_links WHERE entity_type=$1 AND entity_id=$2 RETURNING file_id`

	rows, err := r.db.QueryContext(ctx, query, ref.Type, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete links: %w", err)
	}
	defer rows.Close()

	var fileIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		fileIDs = append(fileIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return fileIDs, nil
}

func (r *PostgresRepository) CountByFile(ctx context.Context, fileID string) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM file_links WHERE file_id=$1`, fileID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return n, nil
}
