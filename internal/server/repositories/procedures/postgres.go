package procedures

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/dbx"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
)

const selectColumns = `id, kind, code, revision, title, file_id, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Procedure) error {
	query := `
		INSERT INTO procedures (id, kind, code, revision, title, file_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	var fileID any
	if p.FileID != nil {
		fileID = *p.FileID
	}
	err := r.db.QueryRowContext(ctx, query, p.ID, p.Kind, p.Code, p.Revision, p.Title, fileID).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert procedure: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Procedure, error) {
	query := `SELECT ` + selectColumns + ` FROM procedures WHERE id=$1`

	p, err := scanProcedure(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select procedure: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context, kind string, limit int) ([]*models.Procedure, error) {
	query := `SELECT ` + selectColumns + ` FROM procedures WHERE kind=$1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select procedures: %w", err)
	}
	defer rows.Close()

	var result []*models.Procedure
	for rows.Next() {
		p, err := scanProcedure(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SetFileID(ctx context.Context, id string, fileID *string) error {
	var v any
	if fileID != nil {
		v = *fileID
	}
	res, err := r.db.ExecContext(ctx, `UPDATE procedures SET file_id=$2 WHERE id=$1`, id, v)
	if err != nil {
		return fmt.Errorf("failed to update procedure: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM procedures WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete procedure: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProcedure(s scanner) (*models.Procedure, error) {
	var (
		p      models.Procedure
		fileID sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Kind, &p.Code, &p.Revision, &p.Title, &fileID, &p.CreatedAt); err != nil {
		return nil, err
	}
	if fileID.Valid {
		p.FileID = &fileID.String
	}
	return &p, nil
}
