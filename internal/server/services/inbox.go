package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/dbx"
	"github.com/dmitrijs2005/weldkeeper/internal/logging"
	"github.com/dmitrijs2005/weldkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Deposit is what an external producer hands to the inbox.
type Deposit struct {
	Upload        Upload
	Target        string
	SourceFolder  string
	SourcePath    string
	SuggestedMeta map[string]string
}

// InboxService stages producer deposits and promotes them into domain
// records. A new entry is a live reference to its file until it is promoted
// or deleted.
type InboxService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	files        *FileStore
	certificates *CertificateService
	procedures   *ProcedureService
	log          logging.Logger
	newID        func() string
	now          func() time.Time
}

func NewInboxService(db *sql.DB, m repomanager.RepositoryManager, files *FileStore,
	certificates *CertificateService, procedures *ProcedureService, log logging.Logger) *InboxService {
	return &InboxService{
		db:           db,
		repomanager:  m,
		files:        files,
		certificates: certificates,
		procedures:   procedures,
		log:          log.With("module", "inbox"),
		newID:        uuid.NewString,
		now:          time.Now,
	}
}

func validTarget(target string) bool {
	switch target {
	case models.EntityMaterialCertificate, models.EntityWPS, models.EntityWPQR:
		return true
	}
	return false
}

// Deposit stores the upload and creates a new inbox entry for it. Identical
// bytes already in the catalog are reused without asking anyone. If the
// entry cannot be inserted, a catalog row created by this call is rolled
// back.
func (s *InboxService) Deposit(ctx context.Context, d Deposit) (*models.InboxEntry, error) {
	if !validTarget(d.Target) {
		return nil, &common.ValidationError{File: d.Upload.Name, Reason: fmt.Sprintf("unknown target %q", d.Target)}
	}
	mime, err := ValidateUpload(d.Upload, s.files.maxBytes)
	if err != nil {
		return nil, err
	}

	existing, digest, err := s.files.FindDuplicate(ctx, d.Upload.Data)
	if err != nil {
		return nil, err
	}

	entry := &models.InboxEntry{
		ID:            s.newID(),
		Target:        d.Target,
		Status:        models.InboxStatusNew,
		SourceFolder:  d.SourceFolder,
		SourcePath:    d.SourcePath,
		SuggestedMeta: d.SuggestedMeta,
	}

	if existing != nil {
		err := s.depositExisting(ctx, entry, existing.ID)
		if err == nil {
			metrics.DedupHits.WithLabelValues("inbox").Inc()
			s.log.Info(ctx, "deposit reuses stored file", "file", d.Upload.Name, "entry_id", entry.ID, "file_id", existing.ID)
			return entry, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, s.files.fail(ctx, &undoStack{}, "inbox", err)
		}
		s.log.Info(ctx, "matching file reclaimed before reuse, storing again", "file", d.Upload.Name, "file_id", existing.ID)
	}

	undo := &undoStack{}
	rec, err := s.files.storeBytes(ctx, d.Upload, mime, d.Target, digest, undo)
	if err != nil {
		return nil, err
	}
	entry.FileID = rec.ID
	entry.File = rec
	if err := s.repomanager.Inbox(s.db).Create(ctx, entry); err != nil {
		return nil, s.files.fail(ctx, undo, "inbox", err)
	}

	s.log.Info(ctx, "inbox entry created", "entry_id", entry.ID, "file_id", rec.ID, "target", d.Target)
	return entry, nil
}

// depositExisting inserts entry against fileID under the same lock
// DeleteIfOrphan takes. It returns common.ErrorNotFound when the file row is
// already gone.
func (s *InboxService) depositExisting(ctx context.Context, entry *models.InboxEntry, fileID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		files := s.repomanager.Files(tx)
		if err := files.Lock(ctx, fileID); err != nil {
			return err
		}
		rec, err := files.GetByID(ctx, fileID)
		if err != nil {
			return err
		}
		entry.FileID = rec.ID
		entry.File = rec
		return s.repomanager.Inbox(tx).Create(ctx, entry)
	})
}

func (s *InboxService) Get(ctx context.Context, id string) (*models.InboxEntry, error) {
	return s.repomanager.Inbox(s.db).GetByID(ctx, id)
}

func (s *InboxService) List(ctx context.Context, status models.InboxStatus, limit int) ([]*models.InboxEntry, error) {
	switch status {
	case models.InboxStatusNew, models.InboxStatusProcessed, models.InboxStatusError:
	default:
		return nil, &common.ValidationError{Reason: fmt.Sprintf("unknown status %q", status)}
	}
	return s.repomanager.Inbox(s.db).List(ctx, status, limit)
}

// MarkError records a producer- or operator-reported ingestion failure.
func (s *InboxService) MarkError(ctx context.Context, id, message string) error {
	return s.repomanager.Inbox(s.db).MarkError(ctx, id, message)
}

// PromoteToCertificate creates c from the entry's file and marks the entry
// processed in the same transaction. On failure the entry is marked error
// with the message.
func (s *InboxService) PromoteToCertificate(ctx context.Context, entryID string, c *models.Certificate) (*models.Certificate, error) {
	var out *models.Certificate
	err := s.promote(ctx, entryID, func(ctx context.Context, fileID string, finish finishFunc) error {
		var err error
		out, err = s.certificates.create(ctx, c, FileSource{ExistingFileID: fileID}, finish)
		return err
	})
	return out, err
}

func (s *InboxService) PromoteToProcedure(ctx context.Context, entryID string, p *models.Procedure) (*models.Procedure, error) {
	var out *models.Procedure
	err := s.promote(ctx, entryID, func(ctx context.Context, fileID string, finish finishFunc) error {
		var err error
		out, err = s.procedures.create(ctx, p, FileSource{ExistingFileID: fileID}, finish)
		return err
	})
	return out, err
}

type finishFunc = func(ctx context.Context, db dbx.DBTX) error

func (s *InboxService) promote(ctx context.Context, entryID string, create func(ctx context.Context, fileID string, finish finishFunc) error) error {
	repo := s.repomanager.Inbox(s.db)

	entry, err := repo.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Status != models.InboxStatusNew {
		return common.ErrInboxEntryNotNew
	}

	// conditional on status='new': a concurrent promotion rolls this one back
	markProcessed := func(ctx context.Context, db dbx.DBTX) error {
		return s.repomanager.Inbox(db).MarkProcessed(ctx, entryID, s.now())
	}

	err = create(ctx, entry.FileID, markProcessed)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrValidation):
		// a bad operator input leaves the entry for another attempt
		return err
	case errors.Is(err, common.ErrInboxEntryNotNew):
		s.log.Warn(ctx, "inbox entry was promoted concurrently", "entry_id", entryID)
		return common.ErrInboxEntryNotNew
	default:
		if markErr := repo.MarkError(context.WithoutCancel(ctx), entryID, err.Error()); markErr != nil {
			s.log.Warn(ctx, "failed to mark inbox entry error", "entry_id", entryID, "error", markErr)
		}
		s.log.Error(ctx, "inbox promotion failed", "entry_id", entryID, "error", err)
		return err
	}

	s.log.Info(ctx, "inbox entry promoted", "entry_id", entryID, "file_id", entry.FileID)
	return nil
}

// Delete removes the entry and reclaims its file when nothing else
// references it.
func (s *InboxService) Delete(ctx context.Context, id string) error {
	fileID, err := s.repomanager.Inbox(s.db).Delete(ctx, id)
	if err != nil {
		return err
	}
	s.log.Info(ctx, "inbox entry deleted", "entry_id", id, "file_id", fileID)
	s.files.reclaim(ctx, fileID)
	return nil
}
