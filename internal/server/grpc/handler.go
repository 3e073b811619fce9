package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const defaultListLimit = 100

type triageHandler struct {
	inbox inboxSvc
	files fileSvc
}

// ListInbox takes {"status": "new", "limit": 50} and returns {"entries": [...]}.
func (h *triageHandler) ListInbox(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	status := models.InboxStatus(stringField(req, "status"))
	if status == "" {
		status = models.InboxStatusNew
	}
	limit := int(numberField(req, "limit"))
	if limit <= 0 {
		limit = defaultListLimit
	}

	entries, err := h.inbox.List(ctx, status, limit)
	if err != nil {
		return nil, err
	}

	list := make([]any, 0, len(entries))
	for _, e := range entries {
		list = append(list, entryToMap(e))
	}
	return structpb.NewStruct(map[string]any{"entries": list})
}

// PromoteInboxEntry creates a certificate or procedure from an entry. The
// "target" key selects material_certificate, wps or wpqr; remaining keys are
// the record fields.
func (h *triageHandler) PromoteInboxEntry(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	entryID := stringField(req, "entry_id")
	if entryID == "" {
		return nil, &common.ValidationError{Reason: "entry_id is required"}
	}

	switch target := stringField(req, "target"); target {
	case models.EntityMaterialCertificate:
		c, err := h.inbox.PromoteToCertificate(ctx, entryID, &models.Certificate{
			HeatNumber: stringField(req, "heat_number"),
			Material:   stringField(req, "material"),
			Supplier:   stringField(req, "supplier"),
			Standard:   stringField(req, "standard"),
		})
		if err != nil {
			return nil, err
		}
		return promoted(target, c.ID, c.FileID)

	case models.EntityWPS, models.EntityWPQR:
		p, err := h.inbox.PromoteToProcedure(ctx, entryID, &models.Procedure{
			Kind:     target,
			Code:     stringField(req, "code"),
			Revision: stringField(req, "revision"),
			Title:    stringField(req, "title"),
		})
		if err != nil {
			return nil, err
		}
		return promoted(target, p.ID, p.FileID)

	default:
		return nil, &common.ValidationError{Reason: "unknown target " + target}
	}
}

func promoted(entityType, entityID string, fileID *string) (*structpb.Struct, error) {
	m := map[string]any{"entity_type": entityType, "entity_id": entityID}
	if fileID != nil {
		m["file_id"] = *fileID
	}
	return structpb.NewStruct(m)
}

func (h *triageHandler) MarkInboxError(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	entryID := stringField(req, "entry_id")
	if entryID == "" {
		return nil, &common.ValidationError{Reason: "entry_id is required"}
	}
	if err := h.inbox.MarkError(ctx, entryID, stringField(req, "message")); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

func (h *triageHandler) DeleteInboxEntry(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := h.inbox.Delete(ctx, req.GetValue()); err != nil {
		return nil, err
	}
	return &emptypb.Empty{}, nil
}

// SignedURL takes {"file_id": "...", "expires_seconds": 300}.
func (h *triageHandler) SignedURL(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	fileID := stringField(req, "file_id")
	if fileID == "" {
		return nil, &common.ValidationError{Reason: "file_id is required"}
	}
	ttl := time.Duration(numberField(req, "expires_seconds")) * time.Second

	u, err := h.files.SignedURL(ctx, fileID, ttl)
	if err != nil {
		return nil, err
	}
	return wrapperspb.String(u), nil
}

func (h *triageHandler) ReclaimFile(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	deleted, err := h.files.DeleteIfOrphan(ctx, req.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bool(deleted), nil
}

func stringField(s *structpb.Struct, key string) string {
	if v, ok := s.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func numberField(s *structpb.Struct, key string) float64 {
	if v, ok := s.GetFields()[key]; ok {
		return v.GetNumberValue()
	}
	return 0
}

func entryToMap(e *models.InboxEntry) map[string]any {
	meta := make(map[string]any, len(e.SuggestedMeta))
	for k, v := range e.SuggestedMeta {
		meta[k] = v
	}
	m := map[string]any{
		"id":             e.ID,
		"file_id":        e.FileID,
		"target":         e.Target,
		"status":         string(e.Status),
		"source_folder":  e.SourceFolder,
		"source_path":    e.SourcePath,
		"suggested_meta": meta,
		"error_message":  e.ErrorMessage,
		"received_at":    e.ReceivedAt.UTC().Format(time.RFC3339),
	}
	if e.ProcessedAt != nil {
		m["processed_at"] = e.ProcessedAt.UTC().Format(time.RFC3339)
	}
	return m
}
