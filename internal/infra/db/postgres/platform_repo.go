package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	domain "github.com/edaccred/horus-backend/internal/domain/platform"
)

type GapRepository struct{ db *sql.DB }

func NewGapRepository(db *sql.DB) *GapRepository { return &GapRepository{db: db} }

const gapColumns = `id, standard, clause, description, severity, user_id, status,
       evidence_ids, related_file_ids, created_at, closed_at`

// Save insert/update a platform gap
func (r *GapRepository) Save(ctx context.Context, g *domain.PlatformGap) error {
	const q = `
INSERT INTO platform_gaps
(id, standard, clause, description, severity, user_id, status,
 evidence_ids, related_file_ids, created_at, closed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 evidence_ids = EXCLUDED.evidence_ids,
 related_file_ids = EXCLUDED.related_file_ids,
 closed_at = EXCLUDED.closed_at;`

	created := g.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		g.ID, g.Standard, g.Clause, g.Description, g.Severity,
		stringOrDash(g.UserID), g.Status,
		pq.Array(g.EvidenceIDs), pq.Array(g.RelatedFileIDs),
		created, g.ClosedAt,
	)
	return err
}

func (r *GapRepository) Get(ctx context.Context, userID string, id domain.GapID) (*domain.PlatformGap, error) {
	const q = `
SELECT ` + gapColumns + `
FROM platform_gaps
WHERE user_id=$1 AND id=$2
LIMIT 1;`
	row := r.db.QueryRowContext(ctx, q, userID, id)
	return scanGap(row.Scan)
}

func (r *GapRepository) List(ctx context.Context, userID string, status domain.GapStatus) ([]*domain.PlatformGap, error) {
	q := `
SELECT ` + gapColumns + `
FROM platform_gaps
WHERE user_id=$1`
	args := []any{userID}
	if status != "" {
		q += ` AND status=$2`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC;`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PlatformGap
	for rows.Next() {
		g, err := scanGap(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// FindOpen returns defined gaps matching (standard, clause), case-insensitive
// on the standard name.
func (r *GapRepository) FindOpen(ctx context.Context, userID, standard, clause string) ([]*domain.PlatformGap, error) {
	const q = `
SELECT ` + gapColumns + `
FROM platform_gaps
WHERE user_id=$1 AND status=$2 AND LOWER(standard)=LOWER($3) AND clause=$4
ORDER BY created_at;`
	rows, err := r.db.QueryContext(ctx, q, userID, domain.GapDefined, standard, clause)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PlatformGap
	for rows.Next() {
		g, err := scanGap(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGap(scan func(dest ...any) error) (*domain.PlatformGap, error) {
	var g domain.PlatformGap
	var closed sql.NullTime
	if err := scan(
		&g.ID, &g.Standard, &g.Clause, &g.Description, &g.Severity,
		&g.UserID, &g.Status,
		pq.Array(&g.EvidenceIDs), pq.Array(&g.RelatedFileIDs),
		&g.CreatedAt, &closed,
	); err != nil {
		return nil, err
	}
	if closed.Valid {
		g.ClosedAt = &closed.Time
	}
	return &g, nil
}

// MetricRepository upserts named per-user metrics, keeping one previous value.
type MetricRepository struct{ db *sql.DB }

func NewMetricRepository(db *sql.DB) *MetricRepository { return &MetricRepository{db: db} }

// Upsert keyed by (user_id, name); the old value moves into previous_value.
func (r *MetricRepository) Upsert(ctx context.Context, userID, name, sourceModule string, value float64) (*domain.PlatformMetric, error) {
	const q = `
INSERT INTO platform_metrics (id, name, value, previous_value, source_module, user_id, updated_at)
VALUES (gen_random_uuid(), $1, $2, NULL, $3, $4, now())
ON CONFLICT (user_id, name) DO UPDATE SET
 previous_value = platform_metrics.value,
 value = EXCLUDED.value,
 source_module = EXCLUDED.source_module,
 updated_at = now()
RETURNING id, name, value, previous_value, source_module, user_id, updated_at;`

	var m domain.PlatformMetric
	var prev sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, q, name, value, sourceModule, userID).Scan(
		&m.ID, &m.Name, &m.Value, &prev, &m.SourceModule, &m.UserID, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if prev.Valid {
		m.PreviousValue = &prev.Float64
	}
	return &m, nil
}

func (r *MetricRepository) Get(ctx context.Context, userID, name string) (*domain.PlatformMetric, error) {
	const q = `
SELECT id, name, value, previous_value, source_module, user_id, updated_at
FROM platform_metrics
WHERE user_id=$1 AND name=$2
LIMIT 1;`
	var m domain.PlatformMetric
	var prev sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, q, userID, name).Scan(
		&m.ID, &m.Name, &m.Value, &prev, &m.SourceModule, &m.UserID, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if prev.Valid {
		m.PreviousValue = &prev.Float64
	}
	return &m, nil
}

func (r *MetricRepository) List(ctx context.Context, userID string) ([]*domain.PlatformMetric, error) {
	const q = `
SELECT id, name, value, previous_value, source_module, user_id, updated_at
FROM platform_metrics
WHERE user_id=$1
ORDER BY name;`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PlatformMetric
	for rows.Next() {
		var m domain.PlatformMetric
		var prev sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.Name, &m.Value, &prev, &m.SourceModule, &m.UserID, &m.UpdatedAt); err != nil {
			return nil, err
		}
		if prev.Valid {
			m.PreviousValue = &prev.Float64
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
