package cli

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/client/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type stubTriage struct {
	last     map[string]any
	lastID   string
	deadline bool

	listOut    *structpb.Struct
	promoteOut *structpb.Struct
	reclaimed  bool
	err        error
}

func (s *stubTriage) record(ctx context.Context, in *structpb.Struct) {
	_, s.deadline = ctx.Deadline()
	if in != nil {
		s.last = in.AsMap()
	}
}

func (s *stubTriage) ListInbox(ctx context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	s.record(ctx, in)
	return s.listOut, s.err
}

func (s *stubTriage) PromoteInboxEntry(ctx context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	s.record(ctx, in)
	return s.promoteOut, s.err
}

func (s *stubTriage) MarkInboxError(ctx context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*emptypb.Empty, error) {
	s.record(ctx, in)
	return &emptypb.Empty{}, s.err
}

func (s *stubTriage) DeleteInboxEntry(ctx context.Context, in *wrapperspb.StringValue, _ ...grpc.CallOption) (*emptypb.Empty, error) {
	s.record(ctx, nil)
	s.lastID = in.GetValue()
	return &emptypb.Empty{}, s.err
}

func (s *stubTriage) SignedURL(ctx context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	s.record(ctx, in)
	return wrapperspb.String("http://127.0.0.1:8080/api/v1/objects?token=t"), s.err
}

func (s *stubTriage) ReclaimFile(ctx context.Context, in *wrapperspb.StringValue, _ ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	s.record(ctx, nil)
	s.lastID = in.GetValue()
	return wrapperspb.Bool(s.reclaimed), s.err
}

func newTestApp(stub *stubTriage) *App {
	return &App{config: &config.Config{ServerEndpointAddr: "bufnet", RequestTimeout: time.Second}, client: stub}
}

func TestList(t *testing.T) {
	out := captureOutput(t)
	listOut, err := structpb.NewStruct(map[string]any{"entries": []any{
		map[string]any{"id": "e1", "target": "wps", "status": "error", "file_id": "f1",
			"source_path": "in/WPS-1.pdf", "error_message": "unreadable"},
	}})
	require.NoError(t, err)
	stub := &stubTriage{listOut: listOut}

	require.NoError(t, newTestApp(stub).List(context.Background(), []string{"error", "5"}))

	assert.Equal(t, map[string]any{"status": "error", "limit": float64(5)}, stub.last)
	assert.True(t, stub.deadline)
	assert.Contains(t, out.String(), "e1")
	assert.Contains(t, out.String(), "error: unreadable")
}

func TestList_Empty(t *testing.T) {
	out := captureOutput(t)
	stub := &stubTriage{listOut: &structpb.Struct{}}

	require.NoError(t, newTestApp(stub).List(context.Background(), nil))
	assert.Empty(t, stub.last)
	assert.Contains(t, out.String(), "No entries.")
}

func TestList_BadLimit(t *testing.T) {
	err := newTestApp(&stubTriage{}).List(context.Background(), []string{"new", "many"})
	assert.ErrorIs(t, err, errUsage)
}

func TestPromote(t *testing.T) {
	out := captureOutput(t)
	promoteOut, err := structpb.NewStruct(map[string]any{"entity_type": "material_certificate", "entity_id": "c1", "file_id": "f1"})
	require.NoError(t, err)
	stub := &stubTriage{promoteOut: promoteOut}

	err = newTestApp(stub).Promote(context.Background(), []string{"e1", "material_certificate", "heat_number=H9", "supplier=ACME"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"entry_id": "e1", "target": "material_certificate", "heat_number": "H9", "supplier": "ACME",
	}, stub.last)
	assert.Contains(t, out.String(), "Created material_certificate c1 (file f1)")
}

func TestPromote_Usage(t *testing.T) {
	a := newTestApp(&stubTriage{})
	assert.ErrorIs(t, a.Promote(context.Background(), []string{"e1"}), errUsage)
	assert.ErrorIs(t, a.Promote(context.Background(), []string{"e1", "wps", "code"}), errUsage)
}

func TestFail_JoinsMessage(t *testing.T) {
	captureOutput(t)
	stub := &stubTriage{}
	require.NoError(t, newTestApp(stub).Fail(context.Background(), []string{"e1", "scan", "is", "blank"}))
	assert.Equal(t, map[string]any{"entry_id": "e1", "message": "scan is blank"}, stub.last)
}

func TestDeleteAndReclaim(t *testing.T) {
	out := captureOutput(t)
	stub := &stubTriage{reclaimed: false}
	a := newTestApp(stub)

	require.NoError(t, a.Delete(context.Background(), []string{"e4"}))
	assert.Equal(t, "e4", stub.lastID)

	require.NoError(t, a.Reclaim(context.Background(), []string{"f4"}))
	assert.Equal(t, "f4", stub.lastID)
	assert.Contains(t, out.String(), "f4 is still referenced")
}

func TestURL(t *testing.T) {
	out := captureOutput(t)
	stub := &stubTriage{}
	a := newTestApp(stub)

	require.NoError(t, a.URL(context.Background(), []string{"f1", "60"}))
	assert.Equal(t, map[string]any{"file_id": "f1", "expires_seconds": float64(60)}, stub.last)
	assert.Contains(t, out.String(), "/api/v1/objects?token=t")

	assert.ErrorIs(t, a.URL(context.Background(), []string{"f1", "0"}), errUsage)
}

func TestCommandsReturnServerErrors(t *testing.T) {
	captureOutput(t)
	want := status.Error(codes.FailedPrecondition, "inbox entry is not new")
	stub := &stubTriage{err: want}

	err := newTestApp(stub).Promote(context.Background(), []string{"e1", "wps", "code=W1"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}
