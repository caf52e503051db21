package platform

import (
	"fmt"
	"time"
)

// GapID identifier type
type GapID string

// Severity enum
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// GapStatus enum, transitions are monotonic forward only:
// defined -> addressed -> closed
type GapStatus string

const (
	GapDefined   GapStatus = "defined"
	GapAddressed GapStatus = "addressed"
	GapClosed    GapStatus = "closed"
)

var gapRank = map[GapStatus]int{GapDefined: 0, GapAddressed: 1, GapClosed: 2}

// CanTransition reports whether moving from -> to respects the forward-only rule.
func CanTransition(from, to GapStatus) bool {
	fr, ok := gapRank[from]
	if !ok {
		return false
	}
	tr, ok := gapRank[to]
	if !ok {
		return false
	}
	return tr == fr+1
}

// ErrBadTransition is returned when a gap transition would move backwards or skip.
type ErrBadTransition struct {
	From, To GapStatus
}

func (e ErrBadTransition) Error() string {
	return fmt.Sprintf("invalid gap transition %s -> %s", e.From, e.To)
}

// PlatformGap is an identified deficiency against a (standard, clause) pair.
// Created externally or by report ingestion; addressed automatically when
// matching evidence is analyzed; closed by an explicit user action.
type PlatformGap struct {
	ID             GapID      `json:"id"`
	Standard       string     `json:"standard"`
	Clause         string     `json:"clause"`
	Description    string     `json:"description,omitempty"`
	Severity       Severity   `json:"severity"`
	UserID         string     `json:"user_id"`
	Status         GapStatus  `json:"status"`
	EvidenceIDs    []string   `json:"evidence_ids,omitempty"`
	RelatedFileIDs []string   `json:"related_file_ids,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

// PlatformMetric is an upserted named value per user; one previous value is
// retained for delta-based notification suppression.
type PlatformMetric struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Value         float64   `json:"value"`
	PreviousValue *float64  `json:"previous_value,omitempty"`
	SourceModule  string    `json:"source_module,omitempty"`
	UserID        string    `json:"user_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DeltaEpsilon: metric changes at or below this magnitude do not notify.
const DeltaEpsilon = 0.001

// Notifiable reports whether the change from prev is large enough to fan out.
func (m *PlatformMetric) Notifiable() bool {
	if m.PreviousValue == nil {
		return true
	}
	d := m.Value - *m.PreviousValue
	if d < 0 {
		d = -d
	}
	return d > DeltaEpsilon
}
