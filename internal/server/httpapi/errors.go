package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
)

const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodeDuplicateContent = "DUPLICATE_CONTENT"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeTooLarge         = "FILE_TOO_LARGE"
	CodeSaveFailed       = "SAVE_FAILED"
	CodeInternalError    = "INTERNAL_ERROR"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// ExistingID is set for DUPLICATE_CONTENT so the caller can retry by
	// linking the stored file.
	ExistingID string `json:"existing_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// statusFor maps store errors to an HTTP status and error code. Anything
// unrecognised is a 500 and should be logged by the caller.
func statusFor(err error) (int, errorDetail) {
	var (
		dup     *common.DuplicateContentError
		tooBig  *http.MaxBytesError
		message = err.Error()
	)
	switch {
	case errors.As(err, &dup):
		return http.StatusConflict, errorDetail{Code: CodeDuplicateContent, Message: message, ExistingID: dup.ExistingID}
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge, errorDetail{Code: CodeTooLarge, Message: message}
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, errorDetail{Code: CodeValidationError, Message: message}
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, errorDetail{Code: CodeNotFound, Message: message}
	case errors.Is(err, common.ErrInboxEntryNotNew):
		return http.StatusConflict, errorDetail{Code: CodeConflict, Message: message}
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, errorDetail{Code: CodeUnauthorized, Message: message}
	case errors.Is(err, common.ErrPartialCreate):
		// "could not save: <step>: <cause>"
		return http.StatusInternalServerError, errorDetail{Code: CodeSaveFailed, Message: message}
	default:
		return http.StatusInternalServerError, errorDetail{Code: CodeInternalError, Message: "internal error"}
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: detail})
}
