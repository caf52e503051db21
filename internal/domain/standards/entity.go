package standards

import "time"

// StandardID identifier type
type StandardID string

// Standard is an accreditation framework (e.g. ISO 21001) composed of criteria.
type Standard struct {
	ID          StandardID `json:"id"`
	Name        string     `json:"name"`
	Family      string     `json:"family,omitempty"` // knowledge-seed key, e.g. "iso21001"
	Description string     `json:"description,omitempty"`
}

// Criterion is one checkable requirement within a Standard.
type Criterion struct {
	ID          string     `json:"id"`
	StandardID  StandardID `json:"standard_id"`
	Code        string     `json:"code"` // clause code, e.g. "4.1"
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
}

// MappingStatus enum
type MappingStatus string

const (
	MappingMet     MappingStatus = "met"
	MappingPartial MappingStatus = "partial"
	MappingGap     MappingStatus = "gap"
)

// CriteriaMapping is a cached per-criterion compliance verdict for one
// (institution, standard) pair. Rows are regenerated wholesale on each mapping
// run; the set is valid for 24h from the newest UpdatedAt.
type CriteriaMapping struct {
	CriterionID     string        `json:"criterion_id"`
	EvidenceID      string        `json:"evidence_id,omitempty"`
	InstitutionID   string        `json:"institution_id"`
	StandardID      StandardID    `json:"standard_id"`
	Status          MappingStatus `json:"status"`
	ConfidenceScore float64       `json:"confidence_score"` // 0..1
	AIReasoning     string        `json:"ai_reasoning,omitempty"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// CacheTTL bounds the validity window of a mapping set.
const CacheTTL = 24 * time.Hour
