package postgres

import (
	"context"
	"database/sql"

	domain "github.com/edaccred/horus-backend/internal/domain/standards"
)

type StandardsRepository struct{ db *sql.DB }

func NewStandardsRepository(db *sql.DB) *StandardsRepository { return &StandardsRepository{db: db} }

func (r *StandardsRepository) Get(ctx context.Context, id domain.StandardID) (*domain.Standard, error) {
	const q = `SELECT id, name, family, description FROM standards WHERE id=$1 LIMIT 1;`
	var s domain.Standard
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Name, &s.Family, &s.Description); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StandardsRepository) List(ctx context.Context) ([]*domain.Standard, error) {
	const q = `SELECT id, name, family, description FROM standards ORDER BY name;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Standard
	for rows.Next() {
		var s domain.Standard
		if err := rows.Scan(&s.ID, &s.Name, &s.Family, &s.Description); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *StandardsRepository) Criteria(ctx context.Context, id domain.StandardID) ([]*domain.Criterion, error) {
	const q = `
SELECT id, standard_id, code, title, description
FROM criteria
WHERE standard_id=$1
ORDER BY code;`
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCriteria(rows)
}

// SeedCriteria bulk-inserts bootstrap criteria inside one transaction.
func (r *StandardsRepository) SeedCriteria(ctx context.Context, id domain.StandardID, criteria []*domain.Criterion) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `
INSERT INTO criteria (id, standard_id, code, title, description)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO NOTHING;`
	for _, c := range criteria {
		if _, err := tx.ExecContext(ctx, q, c.ID, id, c.Code, c.Title, c.Description); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// MatchCriteria prefix-matches a clause code or title, case-insensitively,
// optionally constrained to a standard by name. The prefix comes from AI
// output, so LIKE metacharacters are escaped before binding.
func (r *StandardsRepository) MatchCriteria(ctx context.Context, codePrefix, standardName string) ([]*domain.Criterion, error) {
	q := `
SELECT c.id, c.standard_id, c.code, c.title, c.description
FROM criteria c
JOIN standards s ON s.id = c.standard_id
WHERE (LOWER(c.code) LIKE LOWER($1) || '%' OR LOWER(c.title) LIKE LOWER($1) || '%')`
	args := []any{escapeLike(codePrefix)}
	if standardName != "" {
		q += ` AND LOWER(s.name) = LOWER($2)`
		args = append(args, standardName)
	}
	q += ` ORDER BY c.code;`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCriteria(rows)
}

func collectCriteria(rows *sql.Rows) ([]*domain.Criterion, error) {
	var out []*domain.Criterion
	for rows.Next() {
		var c domain.Criterion
		if err := rows.Scan(&c.ID, &c.StandardID, &c.Code, &c.Title, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
