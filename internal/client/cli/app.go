// Package cli implements the operator triage REPL. It talks to the server's
// triage gRPC service to list, promote, fail and delete inbox entries, sign
// download URLs and run explicit orphan checks.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/weldkeeper/internal/client/config"
	gs "github.com/dmitrijs2005/weldkeeper/internal/server/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// triageAPI is the client surface used by the commands; *gs.TriageClient
// satisfies it.
type triageAPI interface {
	ListInbox(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	PromoteInboxEntry(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	MarkInboxError(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	DeleteInboxEntry(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	SignedURL(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	ReclaimFile(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
}

type App struct {
	config *config.Config
	client triageAPI
	conn   *grpc.ClientConn
}

func NewApp(cfg *config.Config) (*App, error) {
	conn, err := grpc.NewClient(cfg.ServerEndpointAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client: %w", err)
	}
	return &App{config: cfg, client: gs.NewTriageClient(conn), conn: conn}, nil
}

// callCtx bounds a single RPC by the configured request timeout.
func (a *App) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config == nil || a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) status() string {
	return a.config.ServerEndpointAddr
}

func (a *App) Run(ctx context.Context) {
	defer a.conn.Close()

	printlnFn("Weldkeeper triage CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}
