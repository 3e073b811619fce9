package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/dbx"
	"github.com/dmitrijs2005/weldkeeper/internal/hashx"
	"github.com/dmitrijs2005/weldkeeper/internal/logging"
	"github.com/dmitrijs2005/weldkeeper/internal/server/config"
	"github.com/dmitrijs2005/weldkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
	"github.com/dmitrijs2005/weldkeeper/internal/server/objectstore"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// EntityBinding is the domain side of an attach: it points one domain row
// at a file and can undo that.
type EntityBinding interface {
	Ref() models.EntityRef
	// Bind writes the domain row (insert or update) referencing fileID.
	Bind(ctx context.Context, db dbx.DBTX, fileID string) error
	// Unbind reverts what Bind did.
	Unbind(ctx context.Context, db dbx.DBTX) error
}

// FileStore is the content-addressed document store shared by all
// document-bearing features. Domain services never touch object storage
// directly; they attach and detach files through FileStore.
type FileStore struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	objects      objectstore.Store
	log          logging.Logger
	maxBytes     int64
	signedURLTTL time.Duration
	newID        func() string
}

func NewFileStore(db *sql.DB, m repomanager.RepositoryManager, objects objectstore.Store, log logging.Logger, cfg *config.Config) *FileStore {
	return &FileStore{
		db:           db,
		repomanager:  m,
		objects:      objects,
		log:          log.With("module", "filestore"),
		maxBytes:     cfg.MaxUploadBytes,
		signedURLTTL: cfg.SignedURLTTL,
		newID:        uuid.NewString,
	}
}

// FileSource selects where an attached file comes from: new bytes, or a
// catalogued file the caller chose to reuse after a duplicate was reported.
type FileSource struct {
	Upload         *Upload
	ExistingFileID string
}

func (src FileSource) empty() bool {
	return src.Upload == nil && src.ExistingFileID == ""
}

// Attach validates and attaches src through the matching path of the attach
// protocol.
func (s *FileStore) Attach(ctx context.Context, src FileSource, b EntityBinding) (*models.FileRecord, error) {
	if src.ExistingFileID != "" {
		return s.AttachExisting(ctx, src.ExistingFileID, b)
	}
	if src.Upload == nil {
		return nil, &common.ValidationError{Reason: "no file given"}
	}
	mime, err := ValidateUpload(*src.Upload, s.maxBytes)
	if err != nil {
		return nil, err
	}
	return s.AttachBytes(ctx, *src.Upload, mime, b)
}

// FindDuplicate hashes data and returns the catalogued record with the same
// digest, or nil.
func (s *FileStore) FindDuplicate(ctx context.Context, data []byte) (*models.FileRecord, string, error) {
	digest := hashx.Sum(data)
	existing, err := s.repomanager.Files(s.db).FindBySHA256(ctx, digest)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up digest: %w", err)
	}
	return existing, digest, nil
}

// AttachBytes runs the create path of the attach protocol for a validated
// upload. When the digest is already catalogued nothing is written and the
// existing record is returned together with a *common.DuplicateContentError
// so the caller can decide between AttachExisting and rejecting the file.
//
// Otherwise the bytes are uploaded, catalogued, the binding is applied and the
// link inserted. A failure after the upload rolls back the rows created so
// far and returns *common.PartialCreateError. Uploaded bytes are left in
// place.
func (s *FileStore) AttachBytes(ctx context.Context, u Upload, mimeType string, b EntityBinding) (*models.FileRecord, error) {
	ref := b.Ref()

	existing, digest, err := s.FindDuplicate(ctx, u.Data)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.DedupHits.WithLabelValues("attach").Inc()
		s.log.Info(ctx, "duplicate content", "file", u.Name, "existing_id", existing.ID, "entity_type", ref.Type)
		return existing, &common.DuplicateContentError{File: u.Name, ExistingID: existing.ID, Label: existing.Label}
	}

	undo := &undoStack{}
	rec, err := s.storeBytes(ctx, u, mimeType, ref.Type, digest, undo)
	if err != nil {
		return nil, err
	}

	if err := b.Bind(ctx, s.db, rec.ID); err != nil {
		return nil, s.fail(ctx, undo, "entity", err)
	}
	undo.push("entity", func(ctx context.Context) error {
		return b.Unbind(ctx, s.db)
	})

	link := models.FileLink{FileID: rec.ID, Entity: ref}
	if err := s.repomanager.Links(s.db).Create(ctx, link); err != nil {
		return nil, s.fail(ctx, undo, "link", err)
	}
	if f, ok := b.(finisher); ok {
		undo.push("link", func(ctx context.Context) error {
			return s.repomanager.Links(s.db).Delete(ctx, link)
		})
		if err := f.Finish(ctx, s.db); err != nil {
			return nil, s.fail(ctx, undo, "finish", err)
		}
	}

	s.log.Info(ctx, "file attached", "file_id", rec.ID, "entity_type", ref.Type, "entity_id", ref.ID)
	return rec, nil
}

// storeBytes uploads the bytes under a fresh id and catalogues them. On
// success the catalog delete is pushed onto undo.
func (s *FileStore) storeBytes(ctx context.Context, u Upload, mimeType, domainType, digest string, undo *undoStack) (*models.FileRecord, error) {
	id := s.newID()
	rec := &models.FileRecord{
		ID:        id,
		Bucket:    s.objects.Bucket(),
		Path:      models.ObjectPath(domainType, id, u.Name),
		Type:      domainType,
		Label:     u.Name,
		MimeType:  mimeType,
		SizeBytes: int64(len(u.Data)),
		SHA256:    digest,
	}

	if err := s.objects.Put(ctx, rec.Path, u.Data, mimeType); err != nil {
		s.log.Error(ctx, "upload failed", "file", u.Name, "path", rec.Path, "error", err)
		return nil, &common.PartialCreateError{Step: "upload", Err: err}
	}

	if err := s.repomanager.Files(s.db).Create(ctx, rec); err != nil {
		// the object stays behind; its path is never referenced
		return nil, s.fail(ctx, undo, "catalog", err)
	}
	undo.push("catalog", func(ctx context.Context) error {
		return s.repomanager.Files(s.db).Delete(ctx, id)
	})

	metrics.FilesCreated.WithLabelValues(domainType).Inc()
	return rec, nil
}

func (s *FileStore) fail(ctx context.Context, undo *undoStack, step string, err error) error {
	s.log.Error(ctx, "partial create failed", "step", step, "undo_steps", undo.len(), "error", err)
	undo.rollback(ctx, s.log, step)
	return &common.PartialCreateError{Step: step, Err: err}
}

// AttachExisting links the binding to an already catalogued file. The file
// row is locked and re-read in the same transaction as the entity and link
// writes, so it cannot be reclaimed underneath the new link. A binding that
// implements finisher is finished in that transaction too; its error is
// returned as is.
func (s *FileStore) AttachExisting(ctx context.Context, fileID string, b EntityBinding) (*models.FileRecord, error) {
	ref := b.Ref()
	var rec *models.FileRecord

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		files := s.repomanager.Files(tx)
		if err := files.Lock(ctx, fileID); err != nil {
			return err
		}
		var err error
		if rec, err = files.GetByID(ctx, fileID); err != nil {
			return err
		}
		if err := b.Bind(ctx, tx, fileID); err != nil {
			return &common.PartialCreateError{Step: "entity", Err: err}
		}
		if err := s.repomanager.Links(tx).Create(ctx, models.FileLink{FileID: fileID, Entity: ref}); err != nil {
			return &common.PartialCreateError{Step: "link", Err: err}
		}
		if f, ok := b.(finisher); ok {
			return f.Finish(ctx, tx)
		}
		return nil
	})
	if err != nil {
		s.log.Error(ctx, "link to existing file failed", "file_id", fileID, "entity_type", ref.Type, "entity_id", ref.ID, "error", err)
		return nil, err
	}

	s.log.Info(ctx, "file linked", "file_id", fileID, "entity_type", ref.Type, "entity_id", ref.ID)
	return rec, nil
}

// Detach removes one link. The file itself is left for DeleteIfOrphan.
func (s *FileStore) Detach(ctx context.Context, db dbx.DBTX, link models.FileLink) error {
	return s.repomanager.Links(db).Delete(ctx, link)
}

// DetachEntity removes every link owned by ref and returns the detached
// file ids.
func (s *FileStore) DetachEntity(ctx context.Context, db dbx.DBTX, ref models.EntityRef) ([]string, error) {
	return s.repomanager.Links(db).DeleteByEntity(ctx, ref)
}

// DeleteIfOrphan deletes the catalog row of fileID when no link and no new
// inbox entry references it, then removes the object best effort. It reports
// whether the row was deleted. A missing row counts as not deleted.
func (s *FileStore) DeleteIfOrphan(ctx context.Context, fileID string) (bool, error) {
	var rec *models.FileRecord

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		files := s.repomanager.Files(tx)
		if err := files.Lock(ctx, fileID); err != nil {
			return err
		}
		r, err := files.GetByID(ctx, fileID)
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		links, err := s.repomanager.Links(tx).CountByFile(ctx, fileID)
		if err != nil {
			return err
		}
		pending, err := s.repomanager.Inbox(tx).CountNewByFile(ctx, fileID)
		if err != nil {
			return err
		}
		if links+pending > 0 {
			s.log.Debug(ctx, "file still referenced", "file_id", fileID, "links", links, "inbox", pending)
			return nil
		}

		if err := files.Delete(ctx, fileID); err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to reclaim file %s: %w", fileID, err)
	}
	if rec == nil {
		return false, nil
	}

	metrics.OrphansReclaimed.Inc()
	s.log.Info(ctx, "orphan reclaimed", "file_id", fileID, "path", rec.Path)

	if err := s.objects.Delete(context.WithoutCancel(ctx), rec.Path); err != nil {
		metrics.OrphanCleanupFailures.WithLabelValues("object").Inc()
		s.log.Warn(ctx, "failed to delete object of reclaimed file", "file_id", fileID, "path", rec.Path, "error", err)
	}
	return true, nil
}

// reclaim runs DeleteIfOrphan for each id after the caller's own operation
// has succeeded. Failures are logged only.
func (s *FileStore) reclaim(ctx context.Context, fileIDs ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, id := range fileIDs {
		if _, err := s.DeleteIfOrphan(ctx, id); err != nil {
			metrics.OrphanCleanupFailures.WithLabelValues("catalog").Inc()
			s.log.Warn(ctx, "orphan cleanup failed", "file_id", id, "error", err)
		}
	}
}

// replace attaches src to an existing row through set, then detaches and
// reclaims the previous file. The old file is only checked after the new one
// is attached.
func (s *FileStore) replace(ctx context.Context, ref models.EntityRef, prev *string, src FileSource,
	set func(ctx context.Context, db dbx.DBTX, fileID *string) error) (*models.FileRecord, error) {

	rec, err := s.Attach(ctx, src, &swapBinding{ref: ref, prev: prev, set: set})
	if err != nil {
		return rec, err
	}
	if prev == nil || *prev == rec.ID {
		return rec, nil
	}

	if err := s.Detach(ctx, s.db, models.FileLink{FileID: *prev, Entity: ref}); err != nil {
		s.log.Warn(ctx, "failed to detach replaced file", "file_id", *prev, "entity_type", ref.Type, "entity_id", ref.ID, "error", err)
		return rec, nil
	}
	s.reclaim(ctx, *prev)
	return rec, nil
}

// deleteEntity removes the row through del together with its links in one
// transaction, then reclaims the detached files.
func (s *FileStore) deleteEntity(ctx context.Context, ref models.EntityRef, del func(ctx context.Context, db dbx.DBTX) error) error {
	var detached []string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if detached, err = s.DetachEntity(ctx, tx, ref); err != nil {
			return err
		}
		return del(ctx, tx)
	})
	if err != nil {
		return err
	}
	s.reclaim(ctx, detached...)
	return nil
}

// SignedURL returns a time-limited download URL for the file. A ttl of zero
// uses the configured default.
func (s *FileStore) SignedURL(ctx context.Context, fileID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.signedURLTTL
	}
	rec, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return "", err
	}
	u, err := s.objects.PresignGet(ctx, rec.Path, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to sign url for file %s: %w", fileID, err)
	}
	return u, nil
}

// GetFile returns the catalog row.
func (s *FileStore) GetFile(ctx context.Context, fileID string) (*models.FileRecord, error) {
	return s.repomanager.Files(s.db).GetByID(ctx, fileID)
}
