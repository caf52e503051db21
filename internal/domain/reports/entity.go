package reports

import (
	"encoding/json"
	"time"
)

// ReportID identifier type
type ReportID string

// GapAnalysis is one persisted report-generation run. Immutable after creation
// except the archived flag and the async status field.
type GapAnalysis struct {
	ID              ReportID        `json:"id"`
	InstitutionID   string          `json:"institution_id"`
	StandardID      string          `json:"standard_id"`
	OverallScore    int             `json:"overall_score"` // 0..100
	Summary         string          `json:"summary"`
	Gaps            json.RawMessage `json:"gaps"`
	Recommendations json.RawMessage `json:"recommendations"`
	Archived        bool            `json:"archived"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// GapItem is one per-criterion deficiency inside a report payload.
type GapItem struct {
	CriterionCode string `json:"criterion_code"`
	Title         string `json:"title"`
	Status        string `json:"status"`   // met | partial | no_evidence
	Priority      string `json:"priority"` // critical | high | medium | low
	Detail        string `json:"detail,omitempty"`
}

// Payload is the structured result of one generation run.
type Payload struct {
	OverallScore    int       `json:"overall_score"`
	Summary         string    `json:"summary"`
	Gaps            []GapItem `json:"gaps"`
	Recommendations []string  `json:"recommendations"`
}

// ClampScore truncates an AI-returned score to [0,100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
