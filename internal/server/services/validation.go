package services

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
)

// Upload is one file as received from a caller.
type Upload struct {
	Name     string
	Data     []byte
	MimeType string
}

// ValidateUpload checks name, size and content type without any I/O. The
// content type is sniffed from the bytes; the declared MimeType is ignored
// because browsers and scanners often send application/octet-stream. On
// success it returns the MIME type to store.
func ValidateUpload(u Upload, maxBytes int64) (string, error) {
	if strings.TrimSpace(u.Name) == "" {
		return "", &common.ValidationError{Reason: "missing file name"}
	}
	if len(u.Data) == 0 {
		return "", &common.ValidationError{File: u.Name, Reason: "file is empty"}
	}
	if maxBytes > 0 && int64(len(u.Data)) > maxBytes {
		return "", &common.ValidationError{
			File:   u.Name,
			Reason: fmt.Sprintf("file is %d bytes, limit is %d", len(u.Data), maxBytes),
		}
	}

	detected := http.DetectContentType(u.Data)
	if detected != common.MimeTypePDF {
		return "", &common.ValidationError{File: u.Name, Reason: "not a PDF (detected " + detected + ")"}
	}
	return detected, nil
}
