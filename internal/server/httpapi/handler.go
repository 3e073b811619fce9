// Package httpapi is the HTTP surface of the document store: producer
// deposits into the inbox, certificate and procedure records with their
// PDFs, signed download URLs, health and metrics.
package httpapi

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/logging"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
	"github.com/dmitrijs2005/weldkeeper/internal/server/services"
)

type inboxSvc interface {
	Deposit(ctx context.Context, d services.Deposit) (*models.InboxEntry, error)
}

type fileSvc interface {
	GetFile(ctx context.Context, fileID string) (*models.FileRecord, error)
	SignedURL(ctx context.Context, fileID string, ttl time.Duration) (string, error)
}

type certificateSvc interface {
	Create(ctx context.Context, c *models.Certificate, src services.FileSource) (*models.Certificate, error)
	Get(ctx context.Context, id string) (*models.Certificate, error)
	List(ctx context.Context, limit int) ([]*models.Certificate, error)
	ReplaceFile(ctx context.Context, id string, src services.FileSource) (*models.Certificate, error)
	Delete(ctx context.Context, id string) error
	BulkUpload(ctx context.Context, uploads []services.Upload, resolve services.DuplicateResolver, progress services.ProgressFunc) (*services.BatchResult, error)
}

type procedureSvc interface {
	Create(ctx context.Context, p *models.Procedure, src services.FileSource) (*models.Procedure, error)
	Get(ctx context.Context, id string) (*models.Procedure, error)
	List(ctx context.Context, kind string, limit int) ([]*models.Procedure, error)
	ReplaceFile(ctx context.Context, id string, src services.FileSource) (*models.Procedure, error)
	Delete(ctx context.Context, id string) error
}

// objectOpener serves objects behind signed URLs when the filesystem store
// is in use. S3 serves its own presigned URLs.
type objectOpener interface {
	Open(ctx context.Context, token string) (string, io.ReadCloser, error)
}

// Options wires the handler to the service layer. Objects may be nil.
type Options struct {
	Inbox          inboxSvc
	Files          fileSvc
	Certificates   certificateSvc
	Procedures     procedureSvc
	Objects        objectOpener
	ProducerSecret []byte
	MaxUploadBytes int64
	Logger         logging.Logger
}

type Handler struct {
	inbox          inboxSvc
	files          fileSvc
	certificates   certificateSvc
	procedures     procedureSvc
	objects        objectOpener
	producerSecret []byte
	maxUploadBytes int64
	logger         logging.Logger
}

func NewHandler(o Options) *Handler {
	return &Handler{
		inbox:          o.Inbox,
		files:          o.Files,
		certificates:   o.Certificates,
		procedures:     o.Procedures,
		objects:        o.Objects,
		producerSecret: o.ProducerSecret,
		maxUploadBytes: o.MaxUploadBytes,
		logger:         o.Logger.With("module", "httpapi"),
	}
}
