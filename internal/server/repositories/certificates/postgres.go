package certificates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/dbx"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
)

const selectColumns = `id, heat_number, material, supplier, standard, file_id, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Certificate) error {
	query := `
		INSERT INTO certificates (id, heat_number, material, supplier, standard, file_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.HeatNumber, c.Material, c.Supplier, c.Standard, nullable(c.FileID),
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert certificate: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Certificate, error) {
	query := `SELECT ` + selectColumns + ` FROM certificates WHERE id=$1`

	c, err := scanCertificate(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select certificate: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*models.Certificate, error) {
	query := `SELECT ` + selectColumns + ` FROM certificates ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select certificates: %w", err)
	}
	defer rows.Close()

	var result []*models.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SetFileID(ctx context.Context, id string, fileID *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE certificates SET file_id=$2 WHERE id=$1`, id, nullable(fileID))
	if err != nil {
		return fmt.Errorf("failed to update certificate: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM certificates WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete certificate: %w", err)
	}
	return expectOne(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCertificate(s scanner) (*models.Certificate, error) {
	var (
		c      models.Certificate
		fileID sql.NullString
	)
	if err := s.Scan(&c.ID, &c.HeatNumber, &c.Material, &c.Supplier, &c.Standard, &fileID, &c.CreatedAt); err != nil {
		return nil, err
	}
	if fileID.Valid {
		c.FileID = &fileID.String
	}
	return &c, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
