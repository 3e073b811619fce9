package httpapi

import (
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) getFile(w http.ResponseWriter, r *http.Request) {
	f, err := h.files.GetFile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileDTO(f))
}

// signedURL handles GET /api/v1/files/{id}/url?expires=<seconds>. Without
// expires the configured default lifetime applies.
func (h *Handler) signedURL(w http.ResponseWriter, r *http.Request) {
	var ttl time.Duration
	if raw := r.URL.Query().Get("expires"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.fail(w, r, &common.ValidationError{Reason: "expires must be a positive number of seconds"})
			return
		}
		ttl = time.Duration(n) * time.Second
	}

	u, err := h.files.SignedURL(r.Context(), chi.URLParam(r, "id"), ttl)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": u})
}

// getObject serves an object addressed by a signed token.
func (h *Handler) getObject(w http.ResponseWriter, r *http.Request) {
	key, rc, err := h.objects.Open(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer rc.Close()

	contentType := "application/octet-stream"
	if strings.EqualFold(path.Ext(key), ".pdf") {
		contentType = common.MimeTypePDF
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+path.Base(key)+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn(r.Context(), "object download interrupted", "key", key, "error", err)
	}
}
