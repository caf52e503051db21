package reports

import "context"

// Repository port for persisting and querying gap analyses
type Repository interface {
	Save(ctx context.Context, r *GapAnalysis) error
	Get(ctx context.Context, institution string, id ReportID) (*GapAnalysis, error)
	Paginate(ctx context.Context, institution string, page, pageSize int) ([]*GapAnalysis, error)
	SetArchived(ctx context.Context, institution string, id ReportID, archived bool) error
}
