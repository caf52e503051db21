package platform

import "context"

// GapRepository port
type GapRepository interface {
	Save(ctx context.Context, g *PlatformGap) error
	Get(ctx context.Context, userID string, id GapID) (*PlatformGap, error)
	List(ctx context.Context, userID string, status GapStatus) ([]*PlatformGap, error)
	// FindOpen returns gaps in defined status matching (standard, clause) for
	// the user, case-insensitively on the standard name.
	FindOpen(ctx context.Context, userID, standard, clause string) ([]*PlatformGap, error)
}

// MetricRepository port. Upsert is keyed by (user, name) and must move the
// current value into previous_value on update.
type MetricRepository interface {
	Upsert(ctx context.Context, userID, name, sourceModule string, value float64) (*PlatformMetric, error)
	Get(ctx context.Context, userID, name string) (*PlatformMetric, error)
	List(ctx context.Context, userID string) ([]*PlatformMetric, error)
}
