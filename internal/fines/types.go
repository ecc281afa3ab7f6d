package fines

import (
	"encoding/json"
	"time"
)

// MatchedBy reports which identifier an update was applied through.
type MatchedBy string

const (
	MatchedByID       MatchedBy = "id"
	MatchedByFileName MatchedBy = "file_name"
	MatchedNone       MatchedBy = ""
)

// UpdateResult is the outcome of a fallback update.
type UpdateResult struct {
	UpdatedCount int
	MatchedBy    MatchedBy
}

// NormalizedUpdates is the flattened subset of extracted fields written
// to the fines table. Each nullable field is either a valid value or nil,
// never an empty sentinel.
type NormalizedUpdates struct {
	AIAnalysis    json.RawMessage
	FineNumber    *string
	FineAmount    *float64
	FineDate      *string // YYYY-MM-DD
	Location      *string
	ViolationType *string
}

// Record is a row of the externally-owned fines table, limited to the
// columns this system reads. Used by the export listing.
type Record struct {
	ID            string
	FileName      *string
	Status        string
	FineNumber    *string
	FineAmount    *float64
	FineDate      *string
	Location      *string
	ViolationType *string
	ProcessedAt   *time.Time
}
