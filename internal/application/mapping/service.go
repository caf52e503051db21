package mapping

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edaccred/horus-backend/internal/application"
	domai "github.com/edaccred/horus-backend/internal/domain/ai"
	domev "github.com/edaccred/horus-backend/internal/domain/evidence"
	"github.com/edaccred/horus-backend/internal/domain/reports"
	domain "github.com/edaccred/horus-backend/internal/domain/standards"
	"github.com/edaccred/horus-backend/internal/infra/ai/prompt"
	"github.com/edaccred/horus-backend/internal/jsonx"
	"github.com/edaccred/horus-backend/internal/retry"
)

// Service implements the criteria mapping engine: one batched AI call per run
// evaluating every criterion of a standard against the institution's evidence.
type Service struct {
	Standards domain.Repository
	Mappings  domain.MappingRepository
	Evidence  domev.Repository
	Reports   reports.Repository
	AI        domai.Client
	Clock     application.Clock
	Retry     *retry.Config
	Log       *zap.Logger
}

// verdict is one element of the AI's response array. criterion_id is echoed by
// the model; matching falls back to array position when it is absent or unknown.
type verdict struct {
	CriterionID     string  `json:"criterion_id"`
	Status          string  `json:"status"`
	ConfidenceScore float64 `json:"confidence_score"`
	AIReasoning     string  `json:"ai_reasoning"`
	BestEvidenceID  string  `json:"best_evidence_id"`
}

// Analyze runs (or serves from cache) the mapping for one (standard, institution) pair.
func (s *Service) Analyze(ctx context.Context, standardID domain.StandardID, institutionID string, evidenceIDs []string, force bool) ([]*domain.CriteriaMapping, error) {
	std, err := s.Standards.Get(ctx, standardID)
	if err != nil {
		return nil, fmt.Errorf("load standard: %w", err)
	}

	criteria, err := s.criteriaWithBootstrap(ctx, std)
	if err != nil {
		return nil, err
	}
	if len(criteria) == 0 {
		return nil, fmt.Errorf("standard %s has no criteria and no knowledge seed", std.Name)
	}

	if !force {
		if cached, ok, err := s.cached(ctx, standardID, institutionID); err != nil {
			return nil, err
		} else if ok {
			return cached, nil
		}
	}

	ids := make([]domev.EvidenceID, 0, len(evidenceIDs))
	for _, id := range evidenceIDs {
		ids = append(ids, domev.EvidenceID(id))
	}
	evs, err := s.Evidence.ListByInstitution(ctx, institutionID, ids)
	if err != nil {
		return nil, fmt.Errorf("load evidence corpus: %w", err)
	}

	verdicts := s.callAI(ctx, std, criteria, evs)

	known := make(map[string]bool, len(evs))
	for _, e := range evs {
		known[string(e.ID)] = true
	}

	now := s.Clock.Now()
	rows := s.buildRows(criteria, verdicts, known, institutionID, standardID)
	for _, r := range rows {
		r.UpdatedAt = now
	}

	if err := s.Mappings.Replace(ctx, standardID, institutionID, rows); err != nil {
		return nil, fmt.Errorf("replace mappings: %w", err)
	}

	if err := s.saveSummary(ctx, std, institutionID, rows); err != nil {
		s.Log.Warn("mapping summary save failed", zap.Error(err))
	}
	return rows, nil
}

// criteriaWithBootstrap seeds criteria from the standard family's knowledge
// text exactly once, when the standard has none.
func (s *Service) criteriaWithBootstrap(ctx context.Context, std *domain.Standard) ([]*domain.Criterion, error) {
	criteria, err := s.Standards.Criteria(ctx, std.ID)
	if err != nil {
		return nil, fmt.Errorf("load criteria: %w", err)
	}
	if len(criteria) > 0 {
		return criteria, nil
	}

	seeds := prompt.SeedCriteriaFor(std.Family)
	if len(seeds) == 0 {
		return nil, nil
	}
	seeded := make([]*domain.Criterion, 0, len(seeds))
	for _, sc := range seeds {
		seeded = append(seeded, &domain.Criterion{
			ID:          uuid.New().String(),
			StandardID:  std.ID,
			Code:        sc.Code,
			Title:       sc.Title,
			Description: sc.Description,
		})
	}
	if err := s.Standards.SeedCriteria(ctx, std.ID, seeded); err != nil {
		return nil, fmt.Errorf("seed criteria: %w", err)
	}
	s.Log.Info("criteria bootstrapped from knowledge seed",
		zap.String("standard", std.Name), zap.Int("count", len(seeded)))
	return seeded, nil
}

// cached returns the existing rows when the newest is younger than the TTL.
func (s *Service) cached(ctx context.Context, standardID domain.StandardID, institutionID string) ([]*domain.CriteriaMapping, bool, error) {
	existing, err := s.Mappings.ListFor(ctx, standardID, institutionID)
	if err != nil {
		return nil, false, fmt.Errorf("load cached mappings: %w", err)
	}
	if len(existing) == 0 {
		return nil, false, nil
	}
	// rows are ordered newest first
	if s.Clock.Now().Sub(existing[0].UpdatedAt) < domain.CacheTTL {
		return existing, true, nil
	}
	return nil, false, nil
}

// callAI issues the single batched call with bounded exponential backoff.
// Exhausted retries degrade to an empty verdict list: every criterion becomes
// an unexplained gap rather than the run failing.
func (s *Service) callAI(ctx context.Context, std *domain.Standard, criteria []*domain.Criterion, evs []*domev.Evidence) []verdict {
	p := prompt.MappingPrompt(std, criteria, evs)
	raw, err := retry.DoWithResult(ctx, s.Retry, func() (string, error) {
		return s.AI.Generate(ctx, p)
	})
	if err != nil {
		s.Log.Warn("mapping ai call exhausted retries", zap.String("standard", std.Name), zap.Error(err))
		return nil
	}

	var verdicts []verdict
	if err := jsonx.Unmarshal(raw, &verdicts); err != nil {
		s.Log.Warn("mapping ai response unparseable", zap.String("standard", std.Name), zap.Error(err))
		return nil
	}
	return verdicts
}

// buildRows aligns verdicts to criteria by echoed id first, position second,
// and fills a gap row for every criterion left without a verdict.
func (s *Service) buildRows(criteria []*domain.Criterion, verdicts []verdict, knownEvidence map[string]bool, institutionID string, standardID domain.StandardID) []*domain.CriteriaMapping {
	byID := make(map[string]*verdict, len(verdicts))
	for i := range verdicts {
		if verdicts[i].CriterionID != "" {
			byID[verdicts[i].CriterionID] = &verdicts[i]
		}
	}

	rows := make([]*domain.CriteriaMapping, 0, len(criteria))
	for i, c := range criteria {
		v := byID[c.ID]
		if v == nil && i < len(verdicts) && verdicts[i].CriterionID == "" {
			v = &verdicts[i]
		}

		row := &domain.CriteriaMapping{
			CriterionID:   c.ID,
			InstitutionID: institutionID,
			StandardID:    standardID,
			Status:        domain.MappingGap,
			AIReasoning:   "no assessment returned",
		}
		if v != nil {
			row.Status = coerceStatus(v.Status)
			row.ConfidenceScore = clampUnit(v.ConfidenceScore)
			row.AIReasoning = v.AIReasoning
			// anti-hallucination guard: drop evidence ids we do not know
			if knownEvidence[v.BestEvidenceID] {
				row.EvidenceID = v.BestEvidenceID
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// saveSummary persists the companion GapAnalysis row for this run.
func (s *Service) saveSummary(ctx context.Context, std *domain.Standard, institutionID string, rows []*domain.CriteriaMapping) error {
	met := 0
	for _, r := range rows {
		if r.Status == domain.MappingMet {
			met++
		}
	}
	score := 0
	if len(rows) > 0 {
		score = met * 100 / len(rows)
	}

	gapsJSON, _ := json.Marshal([]string{})
	return s.Reports.Save(ctx, &reports.GapAnalysis{
		ID:            reports.ReportID(uuid.New().String()),
		InstitutionID: institutionID,
		StandardID:    string(std.ID),
		OverallScore:  reports.ClampScore(score),
		Summary: fmt.Sprintf("Criteria mapping for %s: %d of %d criteria met",
			std.Name, met, len(rows)),
		Gaps:            gapsJSON,
		Recommendations: gapsJSON,
		Status:          "mapping_summary",
		CreatedAt:       s.Clock.Now(),
	})
}

func coerceStatus(s string) domain.MappingStatus {
	switch domain.MappingStatus(s) {
	case domain.MappingMet, domain.MappingPartial, domain.MappingGap:
		return domain.MappingStatus(s)
	}
	return domain.MappingGap
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
