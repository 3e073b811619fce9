package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/server/services"
)

// depositInbox handles POST /api/v1/inbox.
// Multipart form: file (required), target (required), source_folder,
// source_path, meta (JSON object of strings). The producer comes from the
// bearer token and is used as source folder when none is given.
func (h *Handler) depositInbox(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r, 1); err != nil {
		h.fail(w, r, err)
		return
	}

	fhs := r.MultipartForm.File["file"]
	if len(fhs) == 0 {
		h.fail(w, r, &common.ValidationError{Reason: "field 'file' is required"})
		return
	}
	u, err := readUpload(fhs[0])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	meta, err := parseMeta(r.FormValue("meta"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	producer := producerFromContext(r.Context())
	folder := r.FormValue("source_folder")
	if folder == "" {
		folder = producer
	}

	entry, err := h.inbox.Deposit(r.Context(), services.Deposit{
		Upload:        u,
		Target:        r.FormValue("target"),
		SourceFolder:  folder,
		SourcePath:    r.FormValue("source_path"),
		SuggestedMeta: meta,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.Info(r.Context(), "deposit accepted", "producer", producer, "entry_id", entry.ID)
	writeJSON(w, http.StatusCreated, toInboxEntryDTO(entry))
}
