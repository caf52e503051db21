package reports

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edaccred/horus-backend/internal/application"
	domai "github.com/edaccred/horus-backend/internal/domain/ai"
	domev "github.com/edaccred/horus-backend/internal/domain/evidence"
	"github.com/edaccred/horus-backend/internal/domain/feed"
	domain "github.com/edaccred/horus-backend/internal/domain/reports"
	"github.com/edaccred/horus-backend/internal/domain/standards"
	"github.com/edaccred/horus-backend/internal/infra/ai/prompt"
	"github.com/edaccred/horus-backend/internal/jsonx"
)

// Service implements gap-analysis report generation. Generation always
// succeeds from the caller's perspective: parse failures are absorbed into a
// deterministic fallback payload instead of an error.
type Service struct {
	Repo          domain.Repository
	Standards     standards.Repository
	Evidence      domev.Repository
	AI            domai.Client
	Notifications feed.NotificationRepository
	Clock         application.Clock
	Log           *zap.Logger
}

// rawPayload tolerates both the documented key and the shorter one some
// model replies use for the score.
type rawPayload struct {
	OverallScore    *int             `json:"overall_score"`
	Score           *int             `json:"score"`
	Summary         string           `json:"summary"`
	Gaps            []domain.GapItem `json:"gaps"`
	Recommendations []string         `json:"recommendations"`
}

// Generate runs one AI call and persists the resulting report.
func (s *Service) Generate(ctx context.Context, institutionID string, standardID standards.StandardID) (*domain.GapAnalysis, error) {
	std, err := s.Standards.Get(ctx, standardID)
	if err != nil {
		return nil, fmt.Errorf("load standard: %w", err)
	}
	criteria, err := s.Standards.Criteria(ctx, standardID)
	if err != nil {
		return nil, fmt.Errorf("load criteria: %w", err)
	}
	evs, err := s.Evidence.ListByInstitution(ctx, institutionID, nil)
	if err != nil {
		return nil, fmt.Errorf("load evidence: %w", err)
	}

	raw, err := s.AI.Generate(ctx, prompt.ReportPrompt(std, criteria, evs))
	if err != nil {
		s.Log.Warn("report ai call failed", zap.String("standard", std.Name), zap.Error(err))
		raw = ""
	}
	payload := ParsePayload(raw)

	gapsJSON, _ := json.Marshal(payload.Gaps)
	recsJSON, _ := json.Marshal(payload.Recommendations)

	report := &domain.GapAnalysis{
		ID:              domain.ReportID(uuid.New().String()),
		InstitutionID:   institutionID,
		StandardID:      string(standardID),
		OverallScore:    payload.OverallScore,
		Summary:         payload.Summary,
		Gaps:            gapsJSON,
		Recommendations: recsJSON,
		Status:          "completed",
		CreatedAt:       s.Clock.Now(),
	}
	if err := s.Repo.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	n := &feed.Notification{
		UserID:    institutionID,
		Title:     "Gap analysis ready",
		Message:   fmt.Sprintf("Report for %s scored %d/100", std.Name, payload.OverallScore),
		Type:      feed.TypeInfo,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Notifications.Save(ctx, n); err != nil {
		s.Log.Warn("report notification failed", zap.Error(err))
	}
	return report, nil
}

// ParsePayload turns free-form AI text into a report payload. It strips code
// fences, clamps the score to [0,100] and coerces unknown enum values; a body
// with no parseable JSON yields the deterministic fallback.
func ParsePayload(raw string) domain.Payload {
	var rp rawPayload
	if err := jsonx.Unmarshal(raw, &rp); err != nil {
		return fallbackPayload()
	}

	score := 0
	switch {
	case rp.OverallScore != nil:
		score = *rp.OverallScore
	case rp.Score != nil:
		score = *rp.Score
	}

	gaps := make([]domain.GapItem, 0, len(rp.Gaps))
	for _, g := range rp.Gaps {
		g.Status = coerceGapStatus(g.Status)
		g.Priority = coercePriority(g.Priority)
		gaps = append(gaps, g)
	}

	recs := rp.Recommendations
	if recs == nil {
		recs = []string{}
	}

	return domain.Payload{
		OverallScore:    domain.ClampScore(score),
		Summary:         rp.Summary,
		Gaps:            gaps,
		Recommendations: recs,
	}
}

func fallbackPayload() domain.Payload {
	return domain.Payload{
		OverallScore: 0,
		Summary:      "Failed to generate analysis report. The AI response could not be parsed; please retry the report generation.",
		Gaps:         []domain.GapItem{},
		Recommendations: []string{
			"Re-run the gap analysis for this standard",
			"Verify uploaded evidence documents are readable",
		},
	}
}

func coerceGapStatus(s string) string {
	switch s {
	case "met", "partial", "no_evidence":
		return s
	}
	return "no_evidence"
}

func coercePriority(s string) string {
	switch s {
	case "critical", "high", "medium", "low":
		return s
	}
	return "medium"
}

func (s *Service) Get(ctx context.Context, institution string, id domain.ReportID) (*domain.GapAnalysis, error) {
	return s.Repo.Get(ctx, institution, id)
}

func (s *Service) Paginate(ctx context.Context, institution string, page, pageSize int) ([]*domain.GapAnalysis, error) {
	return s.Repo.Paginate(ctx, institution, page, pageSize)
}

func (s *Service) Archive(ctx context.Context, institution string, id domain.ReportID) error {
	return s.Repo.SetArchived(ctx, institution, id, true)
}
