package models

import "time"

type InboxStatus string

const (
	InboxStatusNew       InboxStatus = "new"
	InboxStatusProcessed InboxStatus = "processed"
	InboxStatusError     InboxStatus = "error"
)

// InboxEntry stages an externally deposited file until an operator promotes
// it into a domain entity or deletes it. While Status is new the entry is a
// live reference to FileID.
type InboxEntry struct {
	ID     string
	FileID string
	// Target names the domain feature the file is destined for.
	Target       string
	Status       InboxStatus
	SourceFolder string
	SourcePath   string
	// SuggestedMeta holds opaque hints extracted upstream (e.g. heat numbers).
	SuggestedMeta map[string]string
	ErrorMessage  string
	ReceivedAt    time.Time
	ProcessedAt   *time.Time

	// File is the joined catalog row, nil when not loaded.
	File *FileRecord
}
