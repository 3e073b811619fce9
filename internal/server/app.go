// Package server wires the document store together: configuration, logging,
// PostgreSQL with migrations, the object store backend, the services and the
// HTTP and gRPC front ends.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/weldkeeper/internal/logging"
	"github.com/dmitrijs2005/weldkeeper/internal/server/config"
	"github.com/dmitrijs2005/weldkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/weldkeeper/internal/server/objectstore"
	"github.com/dmitrijs2005/weldkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/weldkeeper/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/weldkeeper/internal/server/grpc"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	objects      objectstore.Store
	files        *services.FileStore
	certificates *services.CertificateService
	procedures   *services.ProcedureService
	inbox        *services.InboxService
	closers      []func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, closeLogger, err := newLogger(c)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	objects, err := newObjectStore(ctx, c)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	files := services.NewFileStore(db, m, objects, logger, c)
	certs := services.NewCertificateService(db, m, files, logger)
	procs := services.NewProcedureService(db, m, files, logger)
	inbox := services.NewInboxService(db, m, files, certs, procs, logger)

	return &App{
		config:       c,
		logger:       logger,
		db:           db,
		objects:      objects,
		files:        files,
		certificates: certs,
		procedures:   procs,
		inbox:        inbox,
		closers:      []func() error{db.Close, closeLogger},
	}, nil
}

func newLogger(c *config.Config) (logging.Logger, func() error, error) {
	switch c.LogBackend {
	case config.LogBackendZap:
		z, err := logging.NewZapProduction(false)
		if err != nil {
			return nil, nil, err
		}
		return z, z.Sync, nil
	case config.LogBackendSlog, "":
		return logging.NewJSONSlogLogger(os.Stdout, slog.LevelInfo), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown log backend %q", c.LogBackend)
	}
}

func newObjectStore(ctx context.Context, c *config.Config) (objectstore.Store, error) {
	switch c.ObjectStore {
	case config.ObjectStoreS3:
		return objectstore.NewS3Store(ctx, objectstore.S3Options{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
			UsePathStyle: true,
		})
	case config.ObjectStoreFS:
		return objectstore.NewFSStore(c.FSRoot, c.S3Bucket, publicBaseURL(c.HTTPAddr), []byte(c.ProducerSecret))
	default:
		return nil, fmt.Errorf("unknown object store %q", c.ObjectStore)
	}
}

// publicBaseURL turns a bind address such as ":8080" into a URL clients on
// the same host can reach.
func publicBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) httpHandler() *httpapi.Handler {
	opts := httpapi.Options{
		Inbox:          app.inbox,
		Files:          app.files,
		Certificates:   app.certificates,
		Procedures:     app.procedures,
		ProducerSecret: []byte(app.config.ProducerSecret),
		MaxUploadBytes: app.config.MaxUploadBytes,
		Logger:         app.logger,
	}
	if fsStore, ok := app.objects.(*objectstore.FSStore); ok {
		opts.Objects = fsStore
	}
	return httpapi.NewHandler(opts)
}

// Run serves HTTP and gRPC until ctx is cancelled, a signal arrives or one
// of the servers fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close(ctx)

	app.logger.Info(ctx, "Starting app...", "object_store", app.config.ObjectStore, "bucket", app.objects.Bucket())

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpapi.NewHTTPServer(app.config.HTTPAddr, app.logger, app.httpHandler().Routes()).Run(ctx)
	})
	g.Go(func() error {
		return gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.inbox, app.files).Run(ctx)
	})

	if err := g.Wait(); err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
		return err
	}
	return nil
}

func (app *App) close(ctx context.Context) {
	for _, c := range app.closers {
		if err := c(); err != nil {
			app.logger.Warn(ctx, "close failed", "error", err)
		}
	}
}
