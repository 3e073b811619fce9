package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/dbx"
	"github.com/dmitrijs2005/weldkeeper/internal/logging"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ProcedureService manages WPS and WPQR records. The procedure kind doubles
// as the link entity type.
type ProcedureService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	files       *FileStore
	log         logging.Logger
	newID       func() string
}

func NewProcedureService(db *sql.DB, m repomanager.RepositoryManager, files *FileStore, log logging.Logger) *ProcedureService {
	return &ProcedureService{
		db:          db,
		repomanager: m,
		files:       files,
		log:         log.With("module", "procedures"),
		newID:       uuid.NewString,
	}
}

func validateProcedure(p *models.Procedure) error {
	if p.Kind != models.EntityWPS && p.Kind != models.EntityWPQR {
		return &common.ValidationError{Reason: "procedure kind must be wps or wpqr"}
	}
	if strings.TrimSpace(p.Code) == "" {
		return &common.ValidationError{Reason: "procedure code is required"}
	}
	return nil
}

func (s *ProcedureService) Create(ctx context.Context, p *models.Procedure, src FileSource) (*models.Procedure, error) {
	return s.create(ctx, p, src, nil)
}

func (s *ProcedureService) create(ctx context.Context, p *models.Procedure, src FileSource,
	finish func(ctx context.Context, db dbx.DBTX) error) (*models.Procedure, error) {
	if err := validateProcedure(p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = s.newID()
	}

	if src.empty() {
		p.FileID = nil
		if err := s.repomanager.Procedures(s.db).Create(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	}

	b := &rowBinding{
		ref: models.EntityRef{Type: p.Kind, ID: p.ID},
		insert: func(ctx context.Context, db dbx.DBTX, fileID string) error {
			p.FileID = &fileID
			return s.repomanager.Procedures(db).Create(ctx, p)
		},
		remove: func(ctx context.Context, db dbx.DBTX) error {
			return s.repomanager.Procedures(db).Delete(ctx, p.ID)
		},
	}
	if _, err := s.files.Attach(ctx, src, withFinish(b, finish)); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProcedureService) Get(ctx context.Context, id string) (*models.Procedure, error) {
	return s.repomanager.Procedures(s.db).GetByID(ctx, id)
}

func (s *ProcedureService) List(ctx context.Context, kind string, limit int) ([]*models.Procedure, error) {
	return s.repomanager.Procedures(s.db).List(ctx, kind, limit)
}

func (s *ProcedureService) ReplaceFile(ctx context.Context, id string, src FileSource) (*models.Procedure, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ref := models.EntityRef{Type: p.Kind, ID: id}
	rec, err := s.files.replace(ctx, ref, p.FileID, src,
		func(ctx context.Context, db dbx.DBTX, fileID *string) error {
			return s.repomanager.Procedures(db).SetFileID(ctx, id, fileID)
		})
	if err != nil {
		return nil, err
	}
	p.FileID = &rec.ID
	return p, nil
}

func (s *ProcedureService) Delete(ctx context.Context, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.files.deleteEntity(ctx, models.EntityRef{Type: p.Kind, ID: id}, func(ctx context.Context, db dbx.DBTX) error {
		return s.repomanager.Procedures(db).Delete(ctx, id)
	})
}
