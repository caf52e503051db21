package evidence

import (
	"time"
)

// EvidenceID identifier type
type EvidenceID string

// Status enum
type Status string

const (
	StatusProcessing Status = "processing"
	StatusAnalyzed   Status = "analyzed"
	StatusUnmapped   Status = "unmapped"
	StatusFailed     Status = "failed"
	StatusLinked     Status = "linked"
)

// Terminal reports whether a status is a valid end state for the analyzer.
// Evidence never goes back to processing once it left it.
func (s Status) Terminal() bool {
	switch s {
	case StatusAnalyzed, StatusUnmapped, StatusFailed:
		return true
	}
	return false
}

// Aggregate Root: Evidence
// An uploaded document representing institutional proof of compliance.
// Owned by the uploading user, visible to everyone in the same institution.
type Evidence struct {
	ID               EvidenceID `json:"id"`
	OwnerID          string     `json:"owner_id"` // institution
	UploadedBy       string     `json:"uploaded_by"`
	FileURL          string     `json:"file_url"`
	OriginalFilename string     `json:"original_filename"`
	MimeType         string     `json:"mime_type,omitempty"`
	Title            string     `json:"title,omitempty"`
	Summary          string     `json:"summary,omitempty"`
	DocumentType     string     `json:"document_type,omitempty"`
	ConfidenceScore  int        `json:"confidence_score"` // 0..100
	Status           Status     `json:"status"`
	CriterionID      string     `json:"criterion_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// AnalysisUpdate carries the analyzer output applied to an Evidence row.
type AnalysisUpdate struct {
	Title           string
	Summary         string
	DocumentType    string
	ConfidenceScore int
	Status          Status
}

// ClampConfidence truncates an AI-returned confidence to the storable [0,100] range.
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
