// Package links persists FileLink rows: which domain entity references which
// catalogued file.
package links

import (
	"context"

	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
)

type Repository interface {
	// Create inserts the link; an existing identical link is left as is.
	Create(ctx context.Context, link models.FileLink) error
	// Delete removes exactly one link. Removing a missing link is a no-op.
	Delete(ctx context.Context, link models.FileLink) error
	// DeleteByEntity removes every link owned by ref and returns the file ids
	// they pointed to.
	DeleteByEntity(ctx context.Context, ref models.EntityRef) ([]string, error)
	// CountByFile counts links referencing fileID.
	CountByFile(ctx context.Context, fileID string) (int64, error)
}
