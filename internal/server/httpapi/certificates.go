package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
	"github.com/dmitrijs2005/weldkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const maxBulkFiles = 200

func (h *Handler) listCertificates(w http.ResponseWriter, r *http.Request) {
	list, err := h.certificates.List(r.Context(), limitParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]certificateDTO, 0, len(list))
	for _, c := range list {
		out = append(out, toCertificateDTO(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getCertificate(w http.ResponseWriter, r *http.Request) {
	c, err := h.certificates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCertificateDTO(c))
}

// createCertificate handles POST /api/v1/certificates.
// Multipart form: heat_number (required), material, supplier, standard and
// either a file part or existing_file_id. A duplicate upload answers 409 with
// existing_id; the caller may resend with existing_file_id to link it.
func (h *Handler) createCertificate(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r, 1); err != nil {
		h.fail(w, r, err)
		return
	}
	src, err := fileSource(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.certificates.Create(r.Context(), &models.Certificate{
		HeatNumber: r.FormValue("heat_number"),
		Material:   r.FormValue("material"),
		Supplier:   r.FormValue("supplier"),
		Standard:   r.FormValue("standard"),
	}, src)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCertificateDTO(c))
}

func (h *Handler) replaceCertificateFile(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r, 1); err != nil {
		h.fail(w, r, err)
		return
	}
	src, err := fileSource(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.certificates.ReplaceFile(r.Context(), chi.URLParam(r, "id"), src)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCertificateDTO(c))
}

func (h *Handler) deleteCertificate(w http.ResponseWriter, r *http.Request) {
	if err := h.certificates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bulkCertificates handles POST /api/v1/certificates/bulk?on_duplicate=skip|link.
// Every "files" part becomes one certificate named after the file. Files
// whose bytes are already stored are skipped, or linked to the stored file
// when on_duplicate=link.
func (h *Handler) bulkCertificates(w http.ResponseWriter, r *http.Request) {
	policy := r.URL.Query().Get("on_duplicate")
	if policy == "" {
		policy = "skip"
	}
	if policy != "skip" && policy != "link" {
		h.fail(w, r, &common.ValidationError{Reason: "on_duplicate must be skip or link"})
		return
	}

	if err := h.parseForm(w, r, maxBulkFiles); err != nil {
		h.fail(w, r, err)
		return
	}
	fhs := r.MultipartForm.File["files"]
	if len(fhs) == 0 || len(fhs) > maxBulkFiles {
		h.fail(w, r, &common.ValidationError{Reason: "between 1 and 200 'files' parts are required"})
		return
	}

	uploads := make([]services.Upload, 0, len(fhs))
	for _, fh := range fhs {
		u, err := readUpload(fh)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		uploads = append(uploads, u)
	}

	resolve := func(context.Context, services.Upload, *models.FileRecord) (bool, error) {
		return policy == "link", nil
	}
	progress := func(done, total int, name string) {
		h.logger.Debug(r.Context(), "bulk upload progress", "done", done, "total", total, "file", name)
	}

	res, err := h.certificates.BulkUpload(r.Context(), uploads, resolve, progress)
	out := toBatchDTO(res)
	if err == nil {
		writeJSON(w, http.StatusOK, out)
		return
	}
	if errors.Is(err, common.ErrBatchIncomplete) {
		out.Error = err.Error()
		writeJSON(w, http.StatusOK, out)
		return
	}

	status, detail := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "bulk upload stopped", "committed", len(out.Committed), "error", err)
	}
	out.Error = detail.Message
	writeJSON(w, status, out)
}
