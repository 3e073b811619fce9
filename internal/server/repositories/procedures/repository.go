package procedures

import (
	"context"

	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Procedure) error
	GetByID(ctx context.Context, id string) (*models.Procedure, error)
	// List returns procedures of the given kind, newest first.
	List(ctx context.Context, kind string, limit int) ([]*models.Procedure, error)
	SetFileID(ctx context.Context, id string, fileID *string) error
	Delete(ctx context.Context, id string) error
}
