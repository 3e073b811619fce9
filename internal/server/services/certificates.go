package services

import (
	"context"
	"database/sql"
	"path"
	"strings"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/dbx"
	"github.com/dmitrijs2005/weldkeeper/internal/logging"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// CertificateService manages material certificates and their PDFs.
type CertificateService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	files       *FileStore
	log         logging.Logger
	newID       func() string
}

func NewCertificateService(db *sql.DB, m repomanager.RepositoryManager, files *FileStore, log logging.Logger) *CertificateService {
	return &CertificateService{
		db:          db,
		repomanager: m,
		files:       files,
		log:         log.With("module", "certificates"),
		newID:       uuid.NewString,
	}
}

func certificateRef(id string) models.EntityRef {
	return models.EntityRef{Type: models.EntityMaterialCertificate, ID: id}
}

// Create inserts c, attaching src when given. A duplicate upload returns
// *common.DuplicateContentError and creates nothing.
func (s *CertificateService) Create(ctx context.Context, c *models.Certificate, src FileSource) (*models.Certificate, error) {
	return s.create(ctx, c, src, nil)
}

// create is Create with an optional write finished together with the link.
func (s *CertificateService) create(ctx context.Context, c *models.Certificate, src FileSource,
	finish func(ctx context.Context, db dbx.DBTX) error) (*models.Certificate, error) {
	if strings.TrimSpace(c.HeatNumber) == "" {
		return nil, &common.ValidationError{Reason: "heat number is required"}
	}
	if c.ID == "" {
		c.ID = s.newID()
	}

	if src.empty() {
		c.FileID = nil
		if err := s.repomanager.Certificates(s.db).Create(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	}

	if _, err := s.files.Attach(ctx, src, withFinish(s.newRowBinding(c), finish)); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CertificateService) newRowBinding(c *models.Certificate) EntityBinding {
	return &rowBinding{
		ref: certificateRef(c.ID),
		insert: func(ctx context.Context, db dbx.DBTX, fileID string) error {
			c.FileID = &fileID
			return s.repomanager.Certificates(db).Create(ctx, c)
		},
		remove: func(ctx context.Context, db dbx.DBTX) error {
			return s.repomanager.Certificates(db).Delete(ctx, c.ID)
		},
	}
}

func (s *CertificateService) Get(ctx context.Context, id string) (*models.Certificate, error) {
	return s.repomanager.Certificates(s.db).GetByID(ctx, id)
}

func (s *CertificateService) List(ctx context.Context, limit int) ([]*models.Certificate, error) {
	return s.repomanager.Certificates(s.db).List(ctx, limit)
}

// ReplaceFile points the certificate at a new file and reclaims the old one
// if nothing else references it.
func (s *CertificateService) ReplaceFile(ctx context.Context, id string, src FileSource) (*models.Certificate, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, err := s.files.replace(ctx, certificateRef(id), c.FileID, src,
		func(ctx context.Context, db dbx.DBTX, fileID *string) error {
			return s.repomanager.Certificates(db).SetFileID(ctx, id, fileID)
		})
	if err != nil {
		return nil, err
	}
	c.FileID = &rec.ID
	return c, nil
}

func (s *CertificateService) Delete(ctx context.Context, id string) error {
	return s.files.deleteEntity(ctx, certificateRef(id), func(ctx context.Context, db dbx.DBTX) error {
		return s.repomanager.Certificates(db).Delete(ctx, id)
	})
}

// BulkUpload creates one certificate per file. The heat number is taken from
// the file name without extension.
func (s *CertificateService) BulkUpload(ctx context.Context, uploads []Upload, resolve DuplicateResolver, progress ProgressFunc) (*BatchResult, error) {
	b := NewBatchUploader(s.files, s.log)
	return b.Run(ctx, uploads, func(u Upload) EntityBinding {
		return s.newRowBinding(&models.Certificate{
			ID:         s.newID(),
			HeatNumber: strings.TrimSuffix(u.Name, path.Ext(u.Name)),
		})
	}, resolve, progress)
}
