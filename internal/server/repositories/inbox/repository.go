// Package inbox persists FileInboxEntry rows: externally deposited files
// awaiting triage.
package inbox

import (
	"context"
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, entry *models.InboxEntry) error
	// GetByID loads the entry together with its catalog row.
	GetByID(ctx context.Context, id string) (*models.InboxEntry, error)
	List(ctx context.Context, status models.InboxStatus, limit int) ([]*models.InboxEntry, error)
	// MarkProcessed and MarkError only transition entries whose status is
	// new; otherwise they return common.ErrInboxEntryNotNew.
	MarkProcessed(ctx context.Context, id string, at time.Time) error
	MarkError(ctx context.Context, id string, message string) error
	// Delete removes the entry and returns the file id it referenced.
	Delete(ctx context.Context, id string) (string, error)
	// CountNewByFile counts entries with status new that reference fileID.
	CountNewByFile(ctx context.Context, fileID string) (int64, error)
}
