package httpapi

import (
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
	"github.com/dmitrijs2005/weldkeeper/internal/server/services"
)

type fileDTO struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Label     string    `json:"label"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}

func toFileDTO(f *models.FileRecord) fileDTO {
	return fileDTO{
		ID:        f.ID,
		Type:      f.Type,
		Label:     f.Label,
		MimeType:  f.MimeType,
		SizeBytes: f.SizeBytes,
		SHA256:    f.SHA256,
		CreatedAt: f.CreatedAt,
	}
}

type inboxEntryDTO struct {
	ID           string            `json:"id"`
	FileID       string            `json:"file_id"`
	Target       string            `json:"target"`
	Status       string            `json:"status"`
	SourceFolder string            `json:"source_folder,omitempty"`
	SourcePath   string            `json:"source_path,omitempty"`
	Meta         map[string]string `json:"suggested_meta,omitempty"`
	ReceivedAt   time.Time         `json:"received_at"`
}

func toInboxEntryDTO(e *models.InboxEntry) inboxEntryDTO {
	return inboxEntryDTO{
		ID:           e.ID,
		FileID:       e.FileID,
		Target:       e.Target,
		Status:       string(e.Status),
		SourceFolder: e.SourceFolder,
		SourcePath:   e.SourcePath,
		Meta:         e.SuggestedMeta,
		ReceivedAt:   e.ReceivedAt,
	}
}

type certificateDTO struct {
	ID         string    `json:"id"`
	HeatNumber string    `json:"heat_number"`
	Material   string    `json:"material,omitempty"`
	Supplier   string    `json:"supplier,omitempty"`
	Standard   string    `json:"standard,omitempty"`
	FileID     *string   `json:"file_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func toCertificateDTO(c *models.Certificate) certificateDTO {
	return certificateDTO{
		ID:         c.ID,
		HeatNumber: c.HeatNumber,
		Material:   c.Material,
		Supplier:   c.Supplier,
		Standard:   c.Standard,
		FileID:     c.FileID,
		CreatedAt:  c.CreatedAt,
	}
}

type procedureDTO struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Code      string    `json:"code"`
	Revision  string    `json:"revision,omitempty"`
	Title     string    `json:"title,omitempty"`
	FileID    *string   `json:"file_id"`
	CreatedAt time.Time `json:"created_at"`
}

func toProcedureDTO(p *models.Procedure) procedureDTO {
	return procedureDTO{
		ID:        p.ID,
		Kind:      p.Kind,
		Code:      p.Code,
		Revision:  p.Revision,
		Title:     p.Title,
		FileID:    p.FileID,
		CreatedAt: p.CreatedAt,
	}
}

type batchItemDTO struct {
	Name     string `json:"name"`
	FileID   string `json:"file_id"`
	EntityID string `json:"entity_id"`
	Linked   bool   `json:"linked"`
}

type rejectedDTO struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type batchDTO struct {
	Committed  []batchItemDTO `json:"committed"`
	Duplicates []string       `json:"duplicates"`
	Invalid    []rejectedDTO  `json:"invalid"`
	// Error is set when the batch stopped before the last file.
	Error string `json:"error,omitempty"`
}

func toBatchDTO(res *services.BatchResult) batchDTO {
	out := batchDTO{
		Committed:  []batchItemDTO{},
		Duplicates: []string{},
		Invalid:    []rejectedDTO{},
	}
	if res == nil {
		return out
	}
	for _, it := range res.Committed {
		out.Committed = append(out.Committed, batchItemDTO{Name: it.Name, FileID: it.FileID, EntityID: it.Entity.ID, Linked: it.Linked})
	}
	out.Duplicates = append(out.Duplicates, res.Duplicates...)
	for _, v := range res.Invalid {
		out.Invalid = append(out.Invalid, rejectedDTO{Name: v.File, Reason: v.Reason})
	}
	return out
}
