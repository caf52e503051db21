package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edaccred/horus-backend/internal/application"
	platformapp "github.com/edaccred/horus-backend/internal/application/platform"
	domai "github.com/edaccred/horus-backend/internal/domain/ai"
	domain "github.com/edaccred/horus-backend/internal/domain/evidence"
	"github.com/edaccred/horus-backend/internal/domain/feed"
	"github.com/edaccred/horus-backend/internal/domain/standards"
	"github.com/edaccred/horus-backend/internal/infra/ai/prompt"
	"github.com/edaccred/horus-backend/internal/jsonx"
)

// ErrAnalysisInFlight is returned when the same evidence row is already being analyzed.
var ErrAnalysisInFlight = errors.New("analysis already in flight for this evidence")

// Service implements evidence ingestion and the background analyzer.
// Safe for concurrent use; distinct evidence rows analyze independently.
type Service struct {
	Repo          domain.Repository
	Links         domain.LinkRepository
	Files         domain.FileStore
	Standards     standards.Repository
	AI            domai.Client
	Platform      *platformapp.Service
	Notifications feed.NotificationRepository
	Activities    feed.ActivityRepository
	Clock         application.Clock
	Log           *zap.Logger

	inflight sync.Map // EvidenceID -> struct{}
}

// UploadCommand carries one validated multipart upload.
type UploadCommand struct {
	Institution string
	UserID      string
	Filename    string
	MimeType    string
	Data        []byte
}

// AnalyzeCommand is the background-task input.
type AnalyzeCommand struct {
	EvidenceID  domain.EvidenceID
	Institution string
	UserID      string
	Filename    string
	MimeType    string
	Data        []byte
}

// analysisResult is the strict JSON contract the AI must return.
type analysisResult struct {
	DocumentType    string   `json:"document_type"`
	RelatedStandard string   `json:"related_standard"`
	MappedCriteria  []string `json:"mapped_criteria"`
	Confidence      int      `json:"confidence"`
	RiskFlag        bool     `json:"risk_flag"`
	Summary         string   `json:"summary"`
	Title           string   `json:"title"`
}

// Upload stores the file, creates the Evidence row in processing status and
// returns the analyze command the caller schedules in the background.
func (s *Service) Upload(ctx context.Context, cmd UploadCommand) (*domain.Evidence, AnalyzeCommand, error) {
	id := domain.EvidenceID(uuid.New().String())
	key := objectKey(cmd.Institution, id, cmd.Filename)

	url, err := s.Files.Put(ctx, key, cmd.MimeType, cmd.Data)
	if err != nil {
		return nil, AnalyzeCommand{}, fmt.Errorf("store upload: %w", err)
	}

	now := s.Clock.Now()
	e := &domain.Evidence{
		ID:               id,
		OwnerID:          cmd.Institution,
		UploadedBy:       cmd.UserID,
		FileURL:          url,
		OriginalFilename: cmd.Filename,
		MimeType:         cmd.MimeType,
		Status:           domain.StatusProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Repo.Save(ctx, e); err != nil {
		return nil, AnalyzeCommand{}, fmt.Errorf("save evidence: %w", err)
	}

	return e, AnalyzeCommand{
		EvidenceID:  id,
		Institution: cmd.Institution,
		UserID:      cmd.UserID,
		Filename:    cmd.Filename,
		MimeType:    cmd.MimeType,
		Data:        cmd.Data,
	}, nil
}

// AnalyzeUntilDone runs the analyzer with context.Background() so it survives
// the HTTP request that scheduled it. It never returns an error and never
// panics: every failure terminates in status=failed plus an error notification.
// The return value reports whether the run reached a non-failed terminal state;
// a schedule skipped because another run is already in flight counts as ok.
func (s *Service) AnalyzeUntilDone(cmd AnalyzeCommand) (ok bool) {
	ctx := context.Background()

	if _, loaded := s.inflight.LoadOrStore(cmd.EvidenceID, struct{}{}); loaded {
		s.Log.Warn("analysis already in flight, skipping",
			zap.String("evidence_id", string(cmd.EvidenceID)))
		return true
	}
	defer s.inflight.Delete(cmd.EvidenceID)

	defer func() {
		if r := recover(); r != nil {
			s.Log.Error("analyzer panic", zap.Any("panic", r),
				zap.String("evidence_id", string(cmd.EvidenceID)))
			s.markFailed(ctx, cmd, "unexpected analyzer error")
			ok = false
		}
	}()

	if err := s.analyze(ctx, cmd); err != nil {
		s.Log.Warn("evidence analysis failed",
			zap.String("evidence_id", string(cmd.EvidenceID)), zap.Error(err))
		s.markFailed(ctx, cmd, err.Error())
		return false
	}
	return true
}

func (s *Service) analyze(ctx context.Context, cmd AnalyzeCommand) error {
	raw, err := s.AI.AnalyzeFile(ctx, prompt.AnalyzerPrompt(cmd.Filename), domai.FilePayload{
		Filename: cmd.Filename,
		MimeType: cmd.MimeType,
		Data:     cmd.Data,
	})
	if err != nil {
		return fmt.Errorf("ai analysis call: %w", err)
	}

	var res analysisResult
	if err := jsonx.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("parse ai response: %w", err)
	}

	// Criterion codes prefix-match against the catalogue, filtered to the
	// detected standard when one was returned.
	matched := map[string]*standards.Criterion{}
	for _, code := range res.MappedCriteria {
		if code == "" {
			continue
		}
		criteria, err := s.Standards.MatchCriteria(ctx, code, res.RelatedStandard)
		if err != nil {
			return fmt.Errorf("match criteria %q: %w", code, err)
		}
		for _, c := range criteria {
			matched[c.ID] = c
		}
	}

	for id := range matched {
		if err := s.Links.Link(ctx, cmd.EvidenceID, id); err != nil {
			return fmt.Errorf("link criterion %s: %w", id, err)
		}
	}

	status := domain.StatusAnalyzed
	if len(matched) == 0 {
		status = domain.StatusUnmapped
	}
	if err := s.Repo.ApplyAnalysis(ctx, cmd.EvidenceID, domain.AnalysisUpdate{
		Title:           res.Title,
		Summary:         res.Summary,
		DocumentType:    res.DocumentType,
		ConfidenceScore: domain.ClampConfidence(res.Confidence),
		Status:          status,
	}); err != nil {
		return fmt.Errorf("apply analysis: %w", err)
	}

	s.logActivity(ctx, cmd, res, len(matched))

	addressed := s.reconcileGaps(ctx, cmd, res, matched)

	if err := s.Platform.IncrementMetric(ctx, cmd.UserID, "evidence_processed", "evidence", 1); err != nil {
		s.Log.Warn("evidence_processed metric update failed", zap.Error(err))
	}
	if addressed > 0 {
		if err := s.Platform.IncrementMetric(ctx, cmd.UserID, "gaps_addressed_by_ai", "evidence", float64(addressed)); err != nil {
			s.Log.Warn("gaps_addressed_by_ai metric update failed", zap.Error(err))
		}
	}

	s.notify(ctx, cmd.UserID, "Evidence analyzed",
		fmt.Sprintf("%q analyzed with %d%% confidence (%d criteria matched)",
			cmd.Filename, domain.ClampConfidence(res.Confidence), len(matched)),
		feed.TypeSuccess)
	return nil
}

// reconcileGaps transitions matching defined gaps to addressed and returns the count.
func (s *Service) reconcileGaps(ctx context.Context, cmd AnalyzeCommand, res analysisResult, matched map[string]*standards.Criterion) int {
	addressed := 0
	for _, c := range matched {
		std := res.RelatedStandard
		gaps, err := s.Platform.FindOpenGapsForEvidence(ctx, cmd.UserID, std, c.Code)
		if err != nil {
			s.Log.Warn("gap lookup failed", zap.String("clause", c.Code), zap.Error(err))
			continue
		}
		for _, g := range gaps {
			if err := s.Platform.RecordGapAddressed(ctx, cmd.UserID, g.ID, string(cmd.EvidenceID)); err != nil {
				s.Log.Warn("gap transition failed", zap.String("gap_id", string(g.ID)), zap.Error(err))
				continue
			}
			addressed++
			s.notify(ctx, cmd.UserID, "Gap Addressed",
				fmt.Sprintf("Gap %s %s addressed by %q", g.Standard, g.Clause, cmd.Filename),
				feed.TypeSuccess)
		}
	}
	return addressed
}

func (s *Service) logActivity(ctx context.Context, cmd AnalyzeCommand, res analysisResult, matchCount int) {
	details, _ := json.Marshal(map[string]any{
		"evidence_id":      cmd.EvidenceID,
		"matched_criteria": matchCount,
		"confidence":       domain.ClampConfidence(res.Confidence),
		"risk_flag":        res.RiskFlag,
		"document_type":    res.DocumentType,
	})
	a := &feed.Activity{
		UserID:      cmd.UserID,
		Action:      "evidence_analyzed",
		DetailsJSON: string(details),
		CreatedAt:   s.Clock.Now(),
	}
	if err := s.Activities.Save(ctx, a); err != nil {
		s.Log.Warn("activity log failed", zap.Error(err))
	}
}

// markFailed is the single terminal failure path; errors here are only logged.
func (s *Service) markFailed(ctx context.Context, cmd AnalyzeCommand, reason string) {
	if err := s.Repo.UpdateStatus(ctx, cmd.EvidenceID, domain.StatusFailed); err != nil {
		s.Log.Error("failed-status write failed",
			zap.String("evidence_id", string(cmd.EvidenceID)), zap.Error(err))
	}
	s.notify(ctx, cmd.UserID, "Evidence analysis failed",
		fmt.Sprintf("%q could not be analyzed: %s", cmd.Filename, reason),
		feed.TypeError)
}

func (s *Service) notify(ctx context.Context, userID, title, message string, typ feed.NotificationType) {
	n := &feed.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Notifications.Save(ctx, n); err != nil {
		s.Log.Warn("notification failed", zap.String("title", title), zap.Error(err))
	}
}

// Reanalyze re-downloads the stored object and schedules a fresh analysis run.
func (s *Service) Reanalyze(ctx context.Context, institution, userID string, id domain.EvidenceID) (AnalyzeCommand, error) {
	if _, busy := s.inflight.Load(id); busy {
		return AnalyzeCommand{}, ErrAnalysisInFlight
	}
	e, err := s.Repo.Get(ctx, institution, id)
	if err != nil {
		return AnalyzeCommand{}, err
	}
	data, err := s.Files.Fetch(ctx, objectKey(institution, e.ID, e.OriginalFilename))
	if err != nil {
		return AnalyzeCommand{}, fmt.Errorf("fetch stored file: %w", err)
	}
	if err := s.Repo.UpdateStatus(ctx, id, domain.StatusProcessing); err != nil {
		return AnalyzeCommand{}, err
	}
	return AnalyzeCommand{
		EvidenceID:  id,
		Institution: institution,
		UserID:      userID,
		Filename:    e.OriginalFilename,
		MimeType:    e.MimeType,
		Data:        data,
	}, nil
}

// Attach links evidence to a criterion by explicit user action.
func (s *Service) Attach(ctx context.Context, institution string, id domain.EvidenceID, criterionID string) error {
	if criterionID == "" {
		return fmt.Errorf("criterion_id is required")
	}
	if _, err := s.Repo.Get(ctx, institution, id); err != nil {
		return err
	}
	if err := s.Links.Link(ctx, id, criterionID); err != nil {
		return err
	}
	return s.Repo.LinkCriterion(ctx, id, criterionID)
}

// Delete removes the stored object and the row (explicit user delete only).
func (s *Service) Delete(ctx context.Context, institution string, id domain.EvidenceID) error {
	e, err := s.Repo.Get(ctx, institution, id)
	if err != nil {
		return err
	}
	if err := s.Files.Remove(ctx, objectKey(institution, e.ID, e.OriginalFilename)); err != nil {
		s.Log.Warn("object delete failed", zap.String("evidence_id", string(id)), zap.Error(err))
	}
	return s.Repo.Delete(ctx, institution, id)
}

func (s *Service) Get(ctx context.Context, institution string, id domain.EvidenceID) (*domain.Evidence, error) {
	return s.Repo.Get(ctx, institution, id)
}

func (s *Service) Paginate(ctx context.Context, institution string, page, pageSize int) ([]*domain.Evidence, error) {
	return s.Repo.Paginate(ctx, institution, page, pageSize)
}

func objectKey(institution string, id domain.EvidenceID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", institution, id, filename)
}
