package inbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/dbx"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts entry. Status defaults to new and ReceivedAt is filled from
// the database.
func (r *PostgresRepository) Create(ctx context.Context, entry *models.InboxEntry) error {
	if entry.Status == "" {
		entry.Status = models.InboxStatusNew
	}
	meta := entry.SuggestedMeta
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode suggested meta: %w", err)
	}

	query := `
		INSERT INTO file_inbox (id, file_id, target, status, source_folder, source_path, suggested_meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		RETURNING received_at`

	err = r.db.QueryRowContext(ctx, query,
		entry.ID, entry.FileID, entry.Target, string(entry.Status), entry.SourceFolder, entry.SourcePath, string(metaJSON),
	).Scan(&entry.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to insert inbox entry: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.InboxEntry, error) {
	query := `
		SELECT i.id, i.file_id, i.target, i.status, i.source_folder, i.source_path, i.suggested_meta,
			i.error_message, i.received_at, i.processed_at,
			f.id, f.bucket, f.path, f.type, f.label, f.mime_type, f.size_bytes, f.sha256, f.created_at
		FROM file_inbox i
		LEFT JOIN files f ON f.id = i.file_id
		WHERE i.id=$1`

	var (
		e    models.InboxEntry
		meta []byte
		f    joinedFile
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.FileID, &e.Target, &e.Status, &e.SourceFolder, &e.SourcePath, &meta,
		&e.ErrorMessage, &e.ReceivedAt, &e.ProcessedAt,
		&f.ID, &f.Bucket, &f.Path, &f.Type, &f.Label, &f.MimeType, &f.SizeBytes, &f.SHA256, &f.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select inbox entry: %w", err)
	}
	if e.SuggestedMeta, err = decodeMeta(meta); err != nil {
		return nil, err
	}
	e.File = f.record()
	return &e, nil
}

func (r *PostgresRepository) List(ctx context.Context, status models.InboxStatus, limit int) ([]*models.InboxEntry, error) {
	query := `
		SELECT id, file_id, target, status, source_folder, source_path, suggested_meta,
			error_message, received_at, processed_at
		FROM file_inbox
		WHERE status=$1
		ORDER BY received_at
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select inbox entries: %w", err)
	}
	defer rows.Close()

	var result []*models.InboxEntry
	for rows.Next() {
		var (
			e    models.InboxEntry
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.FileID, &e.Target, &e.Status, &e.SourceFolder, &e.SourcePath, &meta,
			&e.ErrorMessage, &e.ReceivedAt, &e.ProcessedAt); err != nil {
			return nil, err
		}
		if e.SuggestedMeta, err = decodeMeta(meta); err != nil {
			return nil, err
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE file_inbox SET status='processed', processed_at=$2, error_message='' WHERE id=$1 AND status='new'`
	return r.transition(ctx, query, id, at)
}

func (r *PostgresRepository) MarkError(ctx context.Context, id string, message string) error {
	query := `UPDATE file_inbox SET status='error', error_message=$2 WHERE id=$1 AND status='new'`
	return r.transition(ctx, query, id, message)
}

func (r *PostgresRepository) transition(ctx context.Context, query string, id string, arg any) error {
	res, err := r.db.ExecContext(ctx, query, id, arg)
	if err != nil {
		return fmt.Errorf("failed to update inbox entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return common.ErrInboxEntryNotNew
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (string, error) {
	var fileID string
	err := r.db.QueryRowContext(ctx, `DELETE FROM file_inbox WHERE id=$1 RETURNING file_id`, id).Scan(&fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrorNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to delete inbox entry: %w", err)
	}
	return fileID, nil
}

func (r *PostgresRepository) CountNewByFile(ctx context.Context, fileID string) (int64, error) {
	var n int64
	query := `SELECT count(*) FROM file_inbox WHERE file_id=$1 AND status='new'`
	if err := r.db.QueryRowContext(ctx, query, fileID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count inbox entries: %w", err)
	}
	return n, nil
}

func decodeMeta(b []byte) (map[string]string, error) {
	meta := map[string]string{}
	if len(b) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode suggested meta: %w", err)
	}
	return meta, nil
}

// joinedFile receives the nullable side of the LEFT JOIN on files.
type joinedFile struct {
	ID        sql.NullString
	Bucket    sql.NullString
	Path      sql.NullString
	Type      sql.NullString
	Label     sql.NullString
	MimeType  sql.NullString
	SizeBytes sql.NullInt64
	SHA256    sql.NullString
	CreatedAt sql.NullTime
}

func (j joinedFile) record() *models.FileRecord {
	if !j.ID.Valid {
		return nil
	}
	return &models.FileRecord{
		ID:        j.ID.String,
		Bucket:    j.Bucket.String,
		Path:      j.Path.String,
		Type:      j.Type.String,
		Label:     j.Label.String,
		MimeType:  j.MimeType.String,
		SizeBytes: j.SizeBytes.Int64,
		SHA256:    j.SHA256.String,
		CreatedAt: j.CreatedAt.Time,
	}
}
