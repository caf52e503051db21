package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/edaccred/horus-backend/internal/domain/reports"
)

type ReportRepository struct{ db *sql.DB }

func NewReportRepository(db *sql.DB) *ReportRepository { return &ReportRepository{db: db} }

// Save inserts a gap analysis record (immutable after creation except archived/status)
func (r *ReportRepository) Save(ctx context.Context, a *domain.GapAnalysis) error {
	const q = `
INSERT INTO gap_analyses
(id, institution_id, standard_id, overall_score, summary, gaps_json,
 recommendations_json, archived, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
 archived = EXCLUDED.archived,
 status = EXCLUDED.status;`

	gaps := string(a.Gaps)
	if strings.TrimSpace(gaps) == "" {
		gaps = "[]"
	}
	recs := string(a.Recommendations)
	if strings.TrimSpace(recs) == "" {
		recs = "[]"
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q,
		a.ID, stringOrDash(a.InstitutionID), a.StandardID, a.OverallScore,
		a.Summary, gaps, recs, a.Archived, a.Status, created,
	)
	return err
}

func (r *ReportRepository) Get(ctx context.Context, institution string, id domain.ReportID) (*domain.GapAnalysis, error) {
	const q = `
SELECT id, institution_id, standard_id, overall_score, summary, gaps_json,
       recommendations_json, archived, status, created_at
FROM gap_analyses
WHERE institution_id=$1 AND id=$2
LIMIT 1;`
	row := r.db.QueryRowContext(ctx, q, institution, id)
	var a domain.GapAnalysis
	var gaps, recs string
	if err := row.Scan(
		&a.ID, &a.InstitutionID, &a.StandardID, &a.OverallScore, &a.Summary,
		&gaps, &recs, &a.Archived, &a.Status, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.Gaps = []byte(gaps)
	a.Recommendations = []byte(recs)
	return &a, nil
}

// Paginate returns a page of reports ordered by created_at desc
func (r *ReportRepository) Paginate(ctx context.Context, institution string, page, pageSize int) ([]*domain.GapAnalysis, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, institution_id, standard_id, overall_score, summary, gaps_json,
       recommendations_json, archived, status, created_at
FROM gap_analyses
WHERE institution_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;`
	rows, err := r.db.QueryContext(ctx, q, institution, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.GapAnalysis
	for rows.Next() {
		var a domain.GapAnalysis
		var gaps, recs string
		if err := rows.Scan(
			&a.ID, &a.InstitutionID, &a.StandardID, &a.OverallScore, &a.Summary,
			&gaps, &recs, &a.Archived, &a.Status, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		a.Gaps = []byte(gaps)
		a.Recommendations = []byte(recs)
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *ReportRepository) SetArchived(ctx context.Context, institution string, id domain.ReportID, archived bool) error {
	const q = `UPDATE gap_analyses SET archived=$1 WHERE institution_id=$2 AND id=$3;`
	_, err := r.db.ExecContext(ctx, q, archived, institution, id)
	return err
}
