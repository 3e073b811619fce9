// Package grpc serves the operator triage API: listing, promoting and
// deleting inbox entries, signing download URLs and explicit orphan checks.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/logging"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
	"google.golang.org/grpc"
)

type inboxSvc interface {
	List(ctx context.Context, status models.InboxStatus, limit int) ([]*models.InboxEntry, error)
	PromoteToCertificate(ctx context.Context, entryID string, c *models.Certificate) (*models.Certificate, error)
	PromoteToProcedure(ctx context.Context, entryID string, p *models.Procedure) (*models.Procedure, error)
	MarkError(ctx context.Context, id, message string) error
	Delete(ctx context.Context, id string) error
}

type fileSvc interface {
	SignedURL(ctx context.Context, fileID string, ttl time.Duration) (string, error)
	DeleteIfOrphan(ctx context.Context, fileID string) (bool, error)
}

type GRPCServer struct {
	address string
	inbox   inboxSvc
	files   fileSvc
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, inbox inboxSvc, files fileSvc) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		inbox:   inbox,
		files:   files,
	}
}

// newServer builds the grpc.Server with the triage service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.errorInterceptor))
	RegisterTriageServer(srv, &triageHandler{inbox: s.inbox, files: s.files})
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
