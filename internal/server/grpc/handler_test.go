package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/logging"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fakeInbox struct {
	entries []*models.InboxEntry
	err     error

	listStatus models.InboxStatus
	listLimit  int
	promoted   string
	cert       *models.Certificate
	proc       *models.Procedure
	marked     string
	deleted    string
}

func (f *fakeInbox) List(_ context.Context, st models.InboxStatus, limit int) ([]*models.InboxEntry, error) {
	f.listStatus, f.listLimit = st, limit
	return f.entries, f.err
}

func (f *fakeInbox) PromoteToCertificate(_ context.Context, id string, c *models.Certificate) (*models.Certificate, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.promoted, f.cert = id, c
	fid := "file-1"
	out := *c
	out.ID, out.FileID = "cert-1", &fid
	return &out, nil
}

func (f *fakeInbox) PromoteToProcedure(_ context.Context, id string, p *models.Procedure) (*models.Procedure, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.promoted, f.proc = id, p
	fid := "file-2"
	out := *p
	out.ID, out.FileID = "proc-1", &fid
	return &out, nil
}

func (f *fakeInbox) MarkError(_ context.Context, id, msg string) error {
	f.marked = id + ":" + msg
	return f.err
}

func (f *fakeInbox) Delete(_ context.Context, id string) error {
	f.deleted = id
	return f.err
}

type fakeFiles struct {
	ttl      time.Duration
	reclaim  bool
	err      error
	lastFile string
}

func (f *fakeFiles) SignedURL(_ context.Context, id string, ttl time.Duration) (string, error) {
	f.lastFile, f.ttl = id, ttl
	if f.err != nil {
		return "", f.err
	}
	return "https://objects.local/" + id, nil
}

func (f *fakeFiles) DeleteIfOrphan(_ context.Context, id string) (bool, error) {
	f.lastFile = id
	return f.reclaim, f.err
}

func newTestClient(t *testing.T, inbox *fakeInbox, files *fakeFiles) *TriageClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer("bufconn", logging.Nop{}, inbox, files)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
	})
	return NewTriageClient(conn)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestListInbox_DefaultsAndEncoding(t *testing.T) {
	received := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	inbox := &fakeInbox{entries: []*models.InboxEntry{{
		ID: "e1", FileID: "f1", Target: models.EntityWPS, Status: models.InboxStatusNew,
		SourceFolder: "scanner", SourcePath: "wps/WPS-001.pdf",
		SuggestedMeta: map[string]string{"code": "WPS-001"},
		ReceivedAt:    received,
	}}}
	c := newTestClient(t, inbox, &fakeFiles{})

	out, err := c.ListInbox(context.Background(), mustStruct(t, nil))
	require.NoError(t, err)

	assert.Equal(t, models.InboxStatusNew, inbox.listStatus)
	assert.Equal(t, defaultListLimit, inbox.listLimit)

	list := out.GetFields()["entries"].GetListValue().GetValues()
	require.Len(t, list, 1)
	e := list[0].GetStructValue().AsMap()
	assert.Equal(t, "e1", e["id"])
	assert.Equal(t, "f1", e["file_id"])
	assert.Equal(t, "new", e["status"])
	assert.Equal(t, received.Format(time.RFC3339), e["received_at"])
	assert.Equal(t, map[string]any{"code": "WPS-001"}, e["suggested_meta"])
	assert.NotContains(t, e, "processed_at")
}

func TestListInbox_PassesStatusAndLimit(t *testing.T) {
	inbox := &fakeInbox{}
	c := newTestClient(t, inbox, &fakeFiles{})

	_, err := c.ListInbox(context.Background(), mustStruct(t, map[string]any{"status": "error", "limit": 5}))
	require.NoError(t, err)
	assert.Equal(t, models.InboxStatusError, inbox.listStatus)
	assert.Equal(t, 5, inbox.listLimit)
}

func TestPromoteInboxEntry(t *testing.T) {
	tests := []struct {
		name     string
		req      map[string]any
		wantType string
		wantID   string
		wantFile string
	}{
		{
			name: "certificate",
			req: map[string]any{
				"entry_id": "e1", "target": "material_certificate",
				"heat_number": "H123", "material": "S355J2", "supplier": "ACME", "standard": "EN 10204 3.1",
			},
			wantType: "material_certificate", wantID: "cert-1", wantFile: "file-1",
		},
		{
			name:     "wpqr",
			req:      map[string]any{"entry_id": "e2", "target": "wpqr", "code": "Q-7", "revision": "B", "title": "GTAW pipe"},
			wantType: "wpqr", wantID: "proc-1", wantFile: "file-2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inbox := &fakeInbox{}
			c := newTestClient(t, inbox, &fakeFiles{})

			out, err := c.PromoteInboxEntry(context.Background(), mustStruct(t, tt.req))
			require.NoError(t, err)

			m := out.AsMap()
			assert.Equal(t, tt.wantType, m["entity_type"])
			assert.Equal(t, tt.wantID, m["entity_id"])
			assert.Equal(t, tt.wantFile, m["file_id"])
			assert.Equal(t, tt.req["entry_id"], inbox.promoted)
		})
	}
}

func TestPromoteInboxEntry_MapsFields(t *testing.T) {
	inbox := &fakeInbox{}
	c := newTestClient(t, inbox, &fakeFiles{})

	_, err := c.PromoteInboxEntry(context.Background(), mustStruct(t, map[string]any{
		"entry_id": "e1", "target": "wps", "code": "WPS-9", "revision": "A", "title": "MAG fillet",
	}))
	require.NoError(t, err)
	require.NotNil(t, inbox.proc)
	assert.Equal(t, models.Procedure{Kind: "wps", Code: "WPS-9", Revision: "A", Title: "MAG fillet"}, *inbox.proc)
}

func TestPromoteInboxEntry_InvalidArguments(t *testing.T) {
	c := newTestClient(t, &fakeInbox{}, &fakeFiles{})

	_, err := c.PromoteInboxEntry(context.Background(), mustStruct(t, map[string]any{"target": "wps"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.PromoteInboxEntry(context.Background(), mustStruct(t, map[string]any{"entry_id": "e1", "target": "weld_map"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not new", common.ErrInboxEntryNotNew, codes.FailedPrecondition},
		{"not found", common.ErrorNotFound, codes.NotFound},
		{"validation", &common.ValidationError{Reason: "heat number is required"}, codes.InvalidArgument},
		{"partial", &common.PartialCreateError{Step: "link", Err: errors.New("boom")}, codes.Internal},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &fakeInbox{err: tt.err}, &fakeFiles{})

			_, err := c.PromoteInboxEntry(context.Background(), mustStruct(t, map[string]any{
				"entry_id": "e1", "target": "material_certificate", "heat_number": "H1",
			}))
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestMarkInboxError(t *testing.T) {
	inbox := &fakeInbox{}
	c := newTestClient(t, inbox, &fakeFiles{})

	_, err := c.MarkInboxError(context.Background(), mustStruct(t, map[string]any{"entry_id": "e1", "message": "unreadable scan"}))
	require.NoError(t, err)
	assert.Equal(t, "e1:unreadable scan", inbox.marked)

	_, err = c.MarkInboxError(context.Background(), mustStruct(t, map[string]any{"message": "x"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDeleteInboxEntry(t *testing.T) {
	inbox := &fakeInbox{}
	c := newTestClient(t, inbox, &fakeFiles{})

	_, err := c.DeleteInboxEntry(context.Background(), wrapperspb.String("e7"))
	require.NoError(t, err)
	assert.Equal(t, "e7", inbox.deleted)
}

func TestSignedURL(t *testing.T) {
	files := &fakeFiles{}
	c := newTestClient(t, &fakeInbox{}, files)

	out, err := c.SignedURL(context.Background(), mustStruct(t, map[string]any{"file_id": "f9", "expires_seconds": 120}))
	require.NoError(t, err)
	assert.Equal(t, "https://objects.local/f9", out.GetValue())
	assert.Equal(t, 2*time.Minute, files.ttl)

	_, err = c.SignedURL(context.Background(), mustStruct(t, nil))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestReclaimFile(t *testing.T) {
	files := &fakeFiles{reclaim: true}
	c := newTestClient(t, &fakeInbox{}, files)

	out, err := c.ReclaimFile(context.Background(), wrapperspb.String("f3"))
	require.NoError(t, err)
	assert.True(t, out.GetValue())
	assert.Equal(t, "f3", files.lastFile)
}
