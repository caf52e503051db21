package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	domain "github.com/edaccred/horus-backend/internal/domain/evidence"
)

type EvidenceRepository struct{ db *sql.DB }

func NewEvidenceRepository(db *sql.DB) *EvidenceRepository { return &EvidenceRepository{db: db} }

const evidenceColumns = `id, owner_id, uploaded_by, file_url, original_filename,
       mime_type, title, summary, document_type, confidence_score, status,
       criterion_id, created_at, updated_at`

// Save insert/update Evidence record
func (r *EvidenceRepository) Save(ctx context.Context, e *domain.Evidence) error {
	const q = `
INSERT INTO evidence
(id, owner_id, uploaded_by, file_url, original_filename, mime_type, title,
 summary, document_type, confidence_score, status, criterion_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NULLIF($12,''),$13,$14)
ON CONFLICT (id) DO UPDATE SET
 title = EXCLUDED.title,
 summary = EXCLUDED.summary,
 document_type = EXCLUDED.document_type,
 confidence_score = EXCLUDED.confidence_score,
 status = EXCLUDED.status,
 criterion_id = EXCLUDED.criterion_id,
 updated_at = EXCLUDED.updated_at;`

	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := e.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err := r.db.ExecContext(ctx, q,
		e.ID, stringOrDash(e.OwnerID), stringOrDash(e.UploadedBy),
		e.FileURL, e.OriginalFilename, e.MimeType, e.Title, e.Summary,
		e.DocumentType, e.ConfidenceScore, e.Status, e.CriterionID,
		created, updated,
	)
	return err
}

// Get by ID scoped to the owning institution
func (r *EvidenceRepository) Get(ctx context.Context, institution string, id domain.EvidenceID) (*domain.Evidence, error) {
	const q = `
SELECT ` + evidenceColumns + `
FROM evidence
WHERE owner_id=$1 AND id=$2
LIMIT 1;`
	return scanEvidence(r.db.QueryRowContext(ctx, q, institution, id))
}

// ListByInstitution returns all visible evidence, optionally restricted to ids.
func (r *EvidenceRepository) ListByInstitution(ctx context.Context, institution string, ids []domain.EvidenceID) ([]*domain.Evidence, error) {
	q := `
SELECT ` + evidenceColumns + `
FROM evidence
WHERE owner_id=$1`
	args := []any{institution}
	if len(ids) > 0 {
		strIDs := make([]string, len(ids))
		for i, id := range ids {
			strIDs[i] = string(id)
		}
		q += ` AND id = ANY($2)`
		args = append(args, pq.Array(strIDs))
	}
	q += ` ORDER BY created_at DESC;`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvidence(rows)
}

// Paginate classic offset pagination, newest first
func (r *EvidenceRepository) Paginate(ctx context.Context, institution string, page, pageSize int) ([]*domain.Evidence, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT ` + evidenceColumns + `
FROM evidence
WHERE owner_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;`
	rows, err := r.db.QueryContext(ctx, q, institution, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvidence(rows)
}

// ApplyAnalysis writes the analyzer output in one statement
func (r *EvidenceRepository) ApplyAnalysis(ctx context.Context, id domain.EvidenceID, upd domain.AnalysisUpdate) error {
	const q = `
UPDATE evidence
SET title = $1,
    summary = $2,
    document_type = $3,
    confidence_score = $4,
    status = $5,
    updated_at = now()
WHERE id = $6;`
	_, err := r.db.ExecContext(ctx, q,
		upd.Title, upd.Summary, upd.DocumentType, upd.ConfidenceScore, upd.Status, id)
	return err
}

func (r *EvidenceRepository) UpdateStatus(ctx context.Context, id domain.EvidenceID, status domain.Status) error {
	const q = `UPDATE evidence SET status = $1, updated_at = now() WHERE id = $2;`
	_, err := r.db.ExecContext(ctx, q, status, id)
	return err
}

func (r *EvidenceRepository) LinkCriterion(ctx context.Context, id domain.EvidenceID, criterionID string) error {
	const q = `UPDATE evidence SET criterion_id = $1, status = $2, updated_at = now() WHERE id = $3;`
	_, err := r.db.ExecContext(ctx, q, criterionID, domain.StatusLinked, id)
	return err
}

func (r *EvidenceRepository) Delete(ctx context.Context, institution string, id domain.EvidenceID) error {
	const q = `DELETE FROM evidence WHERE owner_id = $1 AND id = $2;`
	_, err := r.db.ExecContext(ctx, q, institution, id)
	return err
}

func scanEvidence(row *sql.Row) (*domain.Evidence, error) {
	var e domain.Evidence
	var criterion sql.NullString
	if err := row.Scan(
		&e.ID, &e.OwnerID, &e.UploadedBy, &e.FileURL, &e.OriginalFilename,
		&e.MimeType, &e.Title, &e.Summary, &e.DocumentType, &e.ConfidenceScore,
		&e.Status, &criterion, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.CriterionID = criterion.String
	return &e, nil
}

func collectEvidence(rows *sql.Rows) ([]*domain.Evidence, error) {
	var out []*domain.Evidence
	for rows.Next() {
		var e domain.Evidence
		var criterion sql.NullString
		if err := rows.Scan(
			&e.ID, &e.OwnerID, &e.UploadedBy, &e.FileURL, &e.OriginalFilename,
			&e.MimeType, &e.Title, &e.Summary, &e.DocumentType, &e.ConfidenceScore,
			&e.Status, &criterion, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		e.CriterionID = criterion.String
		out = append(out, &e)
	}
	return out, rows.Err()
}

// EvidenceLinkRepository persists criterion<->evidence links.
type EvidenceLinkRepository struct{ db *sql.DB }

func NewEvidenceLinkRepository(db *sql.DB) *EvidenceLinkRepository {
	return &EvidenceLinkRepository{db: db}
}

// Link inserts one row; duplicates are silently ignored.
func (r *EvidenceLinkRepository) Link(ctx context.Context, evidenceID domain.EvidenceID, criterionID string) error {
	const q = `
INSERT INTO evidence_criteria (evidence_id, criterion_id)
VALUES ($1,$2)
ON CONFLICT (evidence_id, criterion_id) DO NOTHING;`
	_, err := r.db.ExecContext(ctx, q, evidenceID, criterionID)
	return err
}

func (r *EvidenceLinkRepository) CriteriaFor(ctx context.Context, evidenceID domain.EvidenceID) ([]string, error) {
	const q = `SELECT criterion_id FROM evidence_criteria WHERE evidence_id = $1;`
	rows, err := r.db.QueryContext(ctx, q, evidenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
