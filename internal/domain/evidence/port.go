package evidence

import "context"

// Repository port (interface for persistence)
type Repository interface {
	Save(ctx context.Context, e *Evidence) error
	Get(ctx context.Context, institution string, id EvidenceID) (*Evidence, error)
	// ListByInstitution returns all evidence visible to the institution,
	// optionally restricted to a subset of ids (empty slice = no restriction).
	ListByInstitution(ctx context.Context, institution string, ids []EvidenceID) ([]*Evidence, error)
	Paginate(ctx context.Context, institution string, page, pageSize int) ([]*Evidence, error)
	ApplyAnalysis(ctx context.Context, id EvidenceID, upd AnalysisUpdate) error
	UpdateStatus(ctx context.Context, id EvidenceID, status Status) error
	LinkCriterion(ctx context.Context, id EvidenceID, criterionID string) error
	Delete(ctx context.Context, institution string, id EvidenceID) error
}

// LinkRepository persists Criterion<->Evidence link rows created by the analyzer.
// Duplicate links are silently ignored.
type LinkRepository interface {
	Link(ctx context.Context, evidenceID EvidenceID, criterionID string) error
	CriteriaFor(ctx context.Context, evidenceID EvidenceID) ([]string, error)
}

// FileStore port for the uploaded document bytes
type FileStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Fetch(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}
