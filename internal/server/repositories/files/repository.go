package files

import (
	"context"

	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
)

// Repository is the File Catalog: one row per distinct uploaded byte stream.
type Repository interface {
	// Create inserts a catalog row; the caller supplies the ID.
	Create(ctx context.Context, file *models.FileRecord) error
	// FindBySHA256 returns the oldest record with the digest, or nil when none.
	FindBySHA256(ctx context.Context, digest string) (*models.FileRecord, error)
	// GetByID returns common.ErrorNotFound when the row does not exist.
	GetByID(ctx context.Context, id string) (*models.FileRecord, error)
	// Delete removes the row without checking references. Deleting a missing
	// row is a no-op.
	Delete(ctx context.Context, id string) error
	// Lock takes a transaction-scoped advisory lock keyed by the file id. It
	// must run inside a transaction to have any effect.
	Lock(ctx context.Context, id string) error
}
