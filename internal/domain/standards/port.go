package standards

import "context"

// Repository port for standards and their criteria
type Repository interface {
	Get(ctx context.Context, id StandardID) (*Standard, error)
	List(ctx context.Context) ([]*Standard, error)
	Criteria(ctx context.Context, id StandardID) ([]*Criterion, error)
	// SeedCriteria bulk-inserts bootstrap criteria for a standard that has none.
	SeedCriteria(ctx context.Context, id StandardID, criteria []*Criterion) error
	// MatchCriteria returns criteria whose code or title starts with the given
	// prefix, case-insensitively, optionally filtered by standard name.
	MatchCriteria(ctx context.Context, codePrefix, standardName string) ([]*Criterion, error)
}

// MappingRepository port for the cached criteria mapping view.
type MappingRepository interface {
	// ListFor returns the current mapping rows for (standard, institution),
	// newest UpdatedAt first.
	ListFor(ctx context.Context, standardID StandardID, institutionID string) ([]*CriteriaMapping, error)
	// Replace deletes all prior rows for (standard, institution) and inserts
	// the given rows inside one transaction, so readers never observe an
	// empty window between delete and insert.
	Replace(ctx context.Context, standardID StandardID, institutionID string, rows []*CriteriaMapping) error
}
