package platform

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edaccred/horus-backend/internal/application"
	"github.com/edaccred/horus-backend/internal/domain/feed"
	domain "github.com/edaccred/horus-backend/internal/domain/platform"
)

// Service implements the gap reconciler and platform metric use-cases.
type Service struct {
	Gaps          domain.GapRepository
	Metrics       domain.MetricRepository
	Notifications feed.NotificationRepository
	Clock         application.Clock
	Log           *zap.Logger
}

// CreateGapCommand is the external gap-definition path.
type CreateGapCommand struct {
	UserID      string
	Standard    string
	Clause      string
	Description string
	Severity    domain.Severity
}

func (s *Service) CreateGap(ctx context.Context, cmd CreateGapCommand) (*domain.PlatformGap, error) {
	if cmd.Standard == "" || cmd.Clause == "" {
		return nil, fmt.Errorf("standard and clause are required")
	}
	sev := cmd.Severity
	if sev == "" {
		sev = domain.SeverityMedium
	}
	g := &domain.PlatformGap{
		ID:          domain.GapID(uuid.New().String()),
		Standard:    cmd.Standard,
		Clause:      cmd.Clause,
		Description: cmd.Description,
		Severity:    sev,
		UserID:      cmd.UserID,
		Status:      domain.GapDefined,
		CreatedAt:   s.Clock.Now(),
	}
	if err := s.Gaps.Save(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) ListGaps(ctx context.Context, userID string, status domain.GapStatus) ([]*domain.PlatformGap, error) {
	return s.Gaps.List(ctx, userID, status)
}

// FindOpenGapsForEvidence returns defined gaps whose (standard, clause) match
// a criterion the analyzer just mapped.
func (s *Service) FindOpenGapsForEvidence(ctx context.Context, userID, standard, clause string) ([]*domain.PlatformGap, error) {
	return s.Gaps.FindOpen(ctx, userID, standard, clause)
}

// RecordGapAddressed transitions defined -> addressed and appends the evidence id.
func (s *Service) RecordGapAddressed(ctx context.Context, userID string, gapID domain.GapID, evidenceID string) error {
	g, err := s.Gaps.Get(ctx, userID, gapID)
	if err != nil {
		return err
	}
	if !domain.CanTransition(g.Status, domain.GapAddressed) {
		return domain.ErrBadTransition{From: g.Status, To: domain.GapAddressed}
	}
	g.Status = domain.GapAddressed
	for _, id := range g.EvidenceIDs {
		if id == evidenceID {
			evidenceID = ""
			break
		}
	}
	if evidenceID != "" {
		g.EvidenceIDs = append(g.EvidenceIDs, evidenceID)
	}
	return s.Gaps.Save(ctx, g)
}

// CloseGap is the separate, externally triggered addressed -> closed transition.
func (s *Service) CloseGap(ctx context.Context, userID string, gapID domain.GapID) (*domain.PlatformGap, error) {
	g, err := s.Gaps.Get(ctx, userID, gapID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(g.Status, domain.GapClosed) {
		return nil, domain.ErrBadTransition{From: g.Status, To: domain.GapClosed}
	}
	now := s.Clock.Now()
	g.Status = domain.GapClosed
	g.ClosedAt = &now
	if err := s.Gaps.Save(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// IncrementMetric adds delta to a named metric, creating it at delta when absent.
// A notification fans out only when the change is above the suppression epsilon.
func (s *Service) IncrementMetric(ctx context.Context, userID, name, sourceModule string, delta float64) error {
	current := 0.0
	m, err := s.Metrics.Get(ctx, userID, name)
	switch {
	case err == nil:
		current = m.Value
	case errors.Is(err, sql.ErrNoRows):
		// first write for this metric
	default:
		return err
	}
	return s.SetMetric(ctx, userID, name, sourceModule, current+delta)
}

// SetMetric upserts the metric value and applies delta-based notification suppression.
func (s *Service) SetMetric(ctx context.Context, userID, name, sourceModule string, value float64) error {
	m, err := s.Metrics.Upsert(ctx, userID, name, sourceModule, value)
	if err != nil {
		return err
	}
	if !m.Notifiable() {
		return nil
	}
	n := &feed.Notification{
		UserID:    userID,
		Title:     "Metric updated",
		Message:   fmt.Sprintf("%s is now %g", name, m.Value),
		Type:      feed.TypeInfo,
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Notifications.Save(ctx, n); err != nil {
		// metric write already landed; the lost notification is only logged
		s.Log.Warn("metric notification failed", zap.String("metric", name), zap.Error(err))
	}
	return nil
}

func (s *Service) ListMetrics(ctx context.Context, userID string) ([]*domain.PlatformMetric, error) {
	return s.Metrics.List(ctx, userID)
}
