package models

// EntityRef points at one domain row that may own a file.
type EntityRef struct {
	Type string
	ID   string
}

// FileLink records that Entity references the FileRecord FileID. At most one
// link exists per (FileID, Entity.Type, Entity.ID).
type FileLink struct {
	FileID string
	Entity EntityRef
}
