package postgres

import (
	"context"
	"database/sql"
	"fmt"

	domain "github.com/edaccred/horus-backend/internal/domain/standards"
)

type MappingRepository struct{ db *sql.DB }

func NewMappingRepository(db *sql.DB) *MappingRepository { return &MappingRepository{db: db} }

func (r *MappingRepository) ListFor(ctx context.Context, standardID domain.StandardID, institutionID string) ([]*domain.CriteriaMapping, error) {
	const q = `
SELECT criterion_id, COALESCE(evidence_id, ''), institution_id, standard_id,
       status, confidence_score, ai_reasoning, updated_at
FROM criteria_mappings
WHERE standard_id=$1 AND institution_id=$2
ORDER BY updated_at DESC, criterion_id;`
	rows, err := r.db.QueryContext(ctx, q, standardID, institutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.CriteriaMapping
	for rows.Next() {
		var m domain.CriteriaMapping
		if err := rows.Scan(
			&m.CriterionID, &m.EvidenceID, &m.InstitutionID, &m.StandardID,
			&m.Status, &m.ConfidenceScore, &m.AIReasoning, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// Replace swaps the whole mapping set for (standard, institution) in one
// transaction so readers never see the table between delete and insert.
func (r *MappingRepository) Replace(ctx context.Context, standardID domain.StandardID, institutionID string, mappings []*domain.CriteriaMapping) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mapping replace: %w", err)
	}
	defer tx.Rollback()

	const del = `DELETE FROM criteria_mappings WHERE standard_id=$1 AND institution_id=$2;`
	if _, err := tx.ExecContext(ctx, del, standardID, institutionID); err != nil {
		return fmt.Errorf("delete stale mappings: %w", err)
	}

	const ins = `
INSERT INTO criteria_mappings
(criterion_id, evidence_id, institution_id, standard_id, status,
 confidence_score, ai_reasoning, updated_at)
VALUES ($1,NULLIF($2,''),$3,$4,$5,$6,$7,$8);`
	for _, m := range mappings {
		if _, err := tx.ExecContext(ctx, ins,
			m.CriterionID, m.EvidenceID, institutionID, standardID,
			m.Status, m.ConfidenceScore, m.AIReasoning, m.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert mapping for criterion %s: %w", m.CriterionID, err)
		}
	}
	return tx.Commit()
}
