// Package models defines the server-side data models persisted by the
// document store.
package models

import (
	"path"
	"strings"
	"time"
)

// Domain tags used both as FileRecord.Type and FileLink entity types.
const (
	EntityMaterialCertificate = "material_certificate"
	EntityWPS                 = "wps"
	EntityWPQR                = "wpqr"
)

// FileRecord describes one physically stored byte stream. The bytes live in
// object storage at (Bucket, Path); the row is never updated after creation.
type FileRecord struct {
	// ID is generated by the creator before upload so Path can derive from it.
	ID     string
	Bucket string
	Path   string
	// Type is an informational domain tag such as "material_certificate".
	Type string
	// Label is the original filename.
	Label     string
	MimeType  string
	SizeBytes int64
	// SHA256 is the hex content digest used for dedup lookups.
	SHA256    string
	CreatedAt time.Time
}

// ObjectPath derives the object key "{domainType}/{fileID}.{ext}". The
// extension comes from the original filename and defaults to "pdf", so a
// re-upload under the same id overwrites the same key.
func ObjectPath(domainType, fileID, filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		ext = "pdf"
	}
	if domainType == "" {
		domainType = "misc"
	}
	return domainType + "/" + fileID + "." + ext
}
