package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/logging"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
)

// DuplicateResolver decides what to do with an upload whose bytes are
// already stored: true links the existing file, false skips the upload. It
// may block on user input; returning an error aborts the batch.
type DuplicateResolver func(ctx context.Context, u Upload, existing *models.FileRecord) (bool, error)

// ProgressFunc is called after each file with the number of files handled
// so far.
type ProgressFunc func(done, total int, name string)

// BatchItem reports one committed file.
type BatchItem struct {
	Name   string
	FileID string
	Entity models.EntityRef
	// Linked is set when an existing file was reused.
	Linked bool
}

type BatchResult struct {
	Committed  []BatchItem
	Duplicates []string
	Invalid    []*common.ValidationError
}

// BatchUploader attaches many files one at a time. Files are never processed
// concurrently so that the resolver always prompts for exactly one file.
type BatchUploader struct {
	files *FileStore
	log   logging.Logger
}

func NewBatchUploader(files *FileStore, log logging.Logger) *BatchUploader {
	return &BatchUploader{files: files, log: log}
}

// Run attaches every upload, creating a fresh binding per file through bind.
// Invalid and skipped duplicate files do not stop the batch; they are reported
// together in a *common.BatchAggregateError once all files are handled. An
// attach or resolver failure, or cancellation of ctx, stops the batch. Files
// committed before the stop stay committed and are listed in the result.
func (b *BatchUploader) Run(ctx context.Context, uploads []Upload, bind func(Upload) EntityBinding,
	resolve DuplicateResolver, progress ProgressFunc) (*BatchResult, error) {

	res := &BatchResult{}
	total := len(uploads)
	report := func(done int, name string) {
		if progress != nil {
			progress(done, total, name)
		}
	}

	for i, u := range uploads {
		if err := ctx.Err(); err != nil {
			b.log.Warn(ctx, "batch cancelled", "done", i, "total", total)
			return res, fmt.Errorf("batch cancelled after %d of %d files: %w", i, total, err)
		}

		mime, err := ValidateUpload(u, b.files.maxBytes)
		if err != nil {
			var ve *common.ValidationError
			if !errors.As(err, &ve) {
				return res, err
			}
			res.Invalid = append(res.Invalid, ve)
			report(i+1, u.Name)
			continue
		}

		item, skipped, err := b.attachOne(ctx, u, mime, bind(u), resolve)
		if err != nil {
			return res, fmt.Errorf("batch stopped at %s: %w", u.Name, err)
		}
		if skipped {
			res.Duplicates = append(res.Duplicates, u.Name)
		} else {
			res.Committed = append(res.Committed, item)
		}
		report(i+1, u.Name)
	}

	if len(res.Duplicates) > 0 || len(res.Invalid) > 0 {
		return res, &common.BatchAggregateError{Duplicates: res.Duplicates, Invalid: res.Invalid}
	}
	return res, nil
}

func (b *BatchUploader) attachOne(ctx context.Context, u Upload, mime string, binding EntityBinding, resolve DuplicateResolver) (BatchItem, bool, error) {
	item := BatchItem{Name: u.Name, Entity: binding.Ref()}

	rec, err := b.files.AttachBytes(ctx, u, mime, binding)
	if err == nil {
		item.FileID = rec.ID
		return item, false, nil
	}
	if !errors.Is(err, common.ErrDuplicateContent) {
		return item, false, err
	}

	link := false
	if resolve != nil {
		if link, err = resolve(ctx, u, rec); err != nil {
			return item, false, fmt.Errorf("duplicate resolver: %w", err)
		}
	}
	if !link {
		b.log.Info(ctx, "duplicate skipped", "file", u.Name, "existing_id", rec.ID)
		return item, true, nil
	}

	if _, err := b.files.AttachExisting(ctx, rec.ID, binding); err != nil {
		return item, false, err
	}
	item.FileID = rec.ID
	item.Linked = true
	return item, false, nil
}
