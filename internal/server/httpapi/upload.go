package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/server/services"
)

const (
	multipartMemory = 32 << 20
	defaultLimit    = 100
	maxLimit        = 1000
	// multipartOverhead leaves room for form fields and part headers on top
	// of the file bytes.
	multipartOverhead = 1 << 20
)

// parseForm caps the body at files uploads of maxUploadBytes each and parses
// the multipart form.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request, files int) error {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(files)*h.maxUploadBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		return &common.ValidationError{Reason: fmt.Sprintf("invalid multipart form: %v", err)}
	}
	return nil
}

func readUpload(fh *multipart.FileHeader) (services.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return services.Upload{}, err
	}
	return services.Upload{Name: fh.Filename, Data: data, MimeType: fh.Header.Get("Content-Type")}, nil
}

// fileSource reads the optional "file" part, falling back to the
// "existing_file_id" field. Neither present yields an empty source.
func fileSource(r *http.Request) (services.FileSource, error) {
	if r.MultipartForm != nil {
		if fhs := r.MultipartForm.File["file"]; len(fhs) > 0 {
			u, err := readUpload(fhs[0])
			if err != nil {
				return services.FileSource{}, err
			}
			return services.FileSource{Upload: &u}, nil
		}
	}
	return services.FileSource{ExistingFileID: r.FormValue("existing_file_id")}, nil
}

func parseMeta(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	meta := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, &common.ValidationError{Reason: "meta must be a JSON object of strings"}
	}
	return meta, nil
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultLimit
	}
	return min(n, maxLimit)
}
