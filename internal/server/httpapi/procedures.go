package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/weldkeeper/internal/server/models"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) listProcedures(w http.ResponseWriter, r *http.Request) {
	list, err := h.procedures.List(r.Context(), r.URL.Query().Get("kind"), limitParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]procedureDTO, 0, len(list))
	for _, p := range list {
		out = append(out, toProcedureDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getProcedure(w http.ResponseWriter, r *http.Request) {
	p, err := h.procedures.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProcedureDTO(p))
}

// createProcedure handles POST /api/v1/procedures.
// Multipart form: kind (wps or wpqr), code (required), revision, title and
// either a file part or existing_file_id.
func (h *Handler) createProcedure(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r, 1); err != nil {
		h.fail(w, r, err)
		return
	}
	src, err := fileSource(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.procedures.Create(r.Context(), &models.Procedure{
		Kind:     r.FormValue("kind"),
		Code:     r.FormValue("code"),
		Revision: r.FormValue("revision"),
		Title:    r.FormValue("title"),
	}, src)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProcedureDTO(p))
}

func (h *Handler) replaceProcedureFile(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r, 1); err != nil {
		h.fail(w, r, err)
		return
	}
	src, err := fileSource(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.procedures.ReplaceFile(r.Context(), chi.URLParam(r, "id"), src)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProcedureDTO(p))
}

func (h *Handler) deleteProcedure(w http.ResponseWriter, r *http.Request) {
	if err := h.procedures.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
