package assistant

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	platformapp "github.com/edaccred/horus-backend/internal/application/platform"
	domai "github.com/edaccred/horus-backend/internal/domain/ai"
	"github.com/edaccred/horus-backend/internal/domain/feed"
	"github.com/edaccred/horus-backend/internal/domain/platform"
	"github.com/edaccred/horus-backend/internal/infra/ai/prompt"
)

// Service is the Horus conversational assistant: chat over a snapshot of
// aggregate platform state. Synchronous path, errors surface to the caller.
type Service struct {
	AI         domai.Client
	Platform   *platformapp.Service
	Activities feed.ActivityRepository
	Log        *zap.Logger
}

// Chat answers one user turn given the prior history.
func (s *Service) Chat(ctx context.Context, userID string, history []domai.ChatMessage, message string) (string, error) {
	lines := s.stateLines(ctx, userID)

	msgs := append(append([]domai.ChatMessage{}, history...), domai.ChatMessage{
		Role:    "user",
		Content: message,
	})
	reply, err := s.AI.Chat(ctx, msgs, prompt.AssistantContext(lines))
	if err != nil {
		return "", fmt.Errorf("assistant chat: %w", err)
	}
	return reply, nil
}

// stateLines builds the aggregate context; partial failures degrade to fewer
// lines rather than failing the chat.
func (s *Service) stateLines(ctx context.Context, userID string) []string {
	var lines []string

	if metrics, err := s.Platform.ListMetrics(ctx, userID); err == nil {
		for _, m := range metrics {
			lines = append(lines, fmt.Sprintf("metric %s = %g", m.Name, m.Value))
		}
	} else {
		s.Log.Warn("assistant metrics lookup failed", zap.Error(err))
	}

	if gaps, err := s.Platform.ListGaps(ctx, userID, ""); err == nil {
		counts := map[platform.GapStatus]int{}
		for _, g := range gaps {
			counts[g.Status]++
		}
		lines = append(lines, fmt.Sprintf("gaps: %d defined, %d addressed, %d closed",
			counts[platform.GapDefined], counts[platform.GapAddressed], counts[platform.GapClosed]))
	} else {
		s.Log.Warn("assistant gaps lookup failed", zap.Error(err))
	}

	if acts, err := s.Activities.List(ctx, userID, 5); err == nil {
		for _, a := range acts {
			lines = append(lines, fmt.Sprintf("recent activity: %s at %s",
				a.Action, a.CreatedAt.Format("2006-01-02 15:04")))
		}
	} else {
		s.Log.Warn("assistant activity lookup failed", zap.Error(err))
	}

	return lines
}
