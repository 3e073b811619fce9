package models

import "time"

// Certificate is a material certificate (inspection certificate per EN 10204
// or similar) optionally backed by a stored PDF.
type Certificate struct {
	ID         string
	HeatNumber string
	Material   string
	Supplier   string
	Standard   string
	FileID     *string
	CreatedAt  time.Time
}

// Procedure is a welding procedure specification (Kind "wps") or procedure
// qualification record (Kind "wpqr").
type Procedure struct {
	ID        string
	Kind      string
	Code      string
	Revision  string
	Title     string
	FileID    *string
	CreatedAt time.Time
}
