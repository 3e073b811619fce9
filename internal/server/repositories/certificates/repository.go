package certificates

import (
	"context"

	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Certificate) error
	GetByID(ctx context.Context, id string) (*models.Certificate, error)
	List(ctx context.Context, limit int) ([]*models.Certificate, error)
	// SetFileID points the certificate at fileID, or clears it when nil.
	SetFileID(ctx context.Context, id string, fileID *string) error
	Delete(ctx context.Context, id string) error
}
