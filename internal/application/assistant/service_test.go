package assistant

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	platformapp "github.com/edaccred/horus-backend/internal/application/platform"
	domai "github.com/edaccred/horus-backend/internal/domain/ai"
	"github.com/edaccred/horus-backend/internal/domain/feed"
	domplat "github.com/edaccred/horus-backend/internal/domain/platform"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeAI struct {
	reply        string
	err          error
	gotHistory   []domai.ChatMessage
	gotSystemCtx string
}

func (a *fakeAI) Generate(_ context.Context, _ string) (string, error) {
	return "", errors.New("not used")
}

func (a *fakeAI) Chat(_ context.Context, history []domai.ChatMessage, systemContext string) (string, error) {
	a.gotHistory = history
	a.gotSystemCtx = systemContext
	return a.reply, a.err
}

func (a *fakeAI) AnalyzeFile(_ context.Context, _ string, _ domai.FilePayload) (string, error) {
	return "", errors.New("not used")
}

type fakeGapRepo struct {
	gaps []*domplat.PlatformGap
	err  error
}

func (r *fakeGapRepo) Save(_ context.Context, _ *domplat.PlatformGap) error { return nil }

func (r *fakeGapRepo) Get(_ context.Context, _ string, _ domplat.GapID) (*domplat.PlatformGap, error) {
	return nil, sql.ErrNoRows
}

func (r *fakeGapRepo) List(_ context.Context, _ string, _ domplat.GapStatus) ([]*domplat.PlatformGap, error) {
	return r.gaps, r.err
}

func (r *fakeGapRepo) FindOpen(_ context.Context, _, _, _ string) ([]*domplat.PlatformGap, error) {
	return nil, nil
}

type fakeMetricRepo struct {
	metrics []*domplat.PlatformMetric
	err     error
}

func (r *fakeMetricRepo) Upsert(_ context.Context, _, _, _ string, _ float64) (*domplat.PlatformMetric, error) {
	return nil, errors.New("not used")
}

func (r *fakeMetricRepo) Get(_ context.Context, _, _ string) (*domplat.PlatformMetric, error) {
	return nil, sql.ErrNoRows
}

func (r *fakeMetricRepo) List(_ context.Context, _ string) ([]*domplat.PlatformMetric, error) {
	return r.metrics, r.err
}

type fakeActivityRepo struct {
	acts []*feed.Activity
	err  error
}

func (r *fakeActivityRepo) Save(_ context.Context, _ *feed.Activity) error { return nil }

func (r *fakeActivityRepo) List(_ context.Context, _ string, _ int) ([]*feed.Activity, error) {
	return r.acts, r.err
}

type fakeNotifRepo struct{}

func (fakeNotifRepo) Save(_ context.Context, _ *feed.Notification) error { return nil }

func (fakeNotifRepo) List(_ context.Context, _ string, _ int) ([]*feed.Notification, error) {
	return nil, nil
}

func (fakeNotifRepo) MarkRead(_ context.Context, _ string, _ int64) error { return nil }

func newTestService(ai *fakeAI, gaps *fakeGapRepo, metrics *fakeMetricRepo, acts *fakeActivityRepo) *Service {
	return &Service{
		AI: ai,
		Platform: &platformapp.Service{
			Gaps:          gaps,
			Metrics:       metrics,
			Notifications: fakeNotifRepo{},
			Clock:         fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
			Log:           zap.NewNop(),
		},
		Activities: acts,
		Log:        zap.NewNop(),
	}
}

func TestChatAppendsUserTurnAndInjectsState(t *testing.T) {
	ai := &fakeAI{reply: "You have 1 open gap in clause 7.2."}
	gaps := &fakeGapRepo{gaps: []*domplat.PlatformGap{
		{ID: "g1", Status: domplat.GapDefined},
		{ID: "g2", Status: domplat.GapAddressed},
	}}
	metrics := &fakeMetricRepo{metrics: []*domplat.PlatformMetric{
		{Name: "evidence_processed", Value: 12},
	}}
	acts := &fakeActivityRepo{acts: []*feed.Activity{
		{Action: "evidence_analyzed", CreatedAt: time.Date(2026, 2, 28, 9, 30, 0, 0, time.UTC)},
	}}
	svc := newTestService(ai, gaps, metrics, acts)

	history := []domai.ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}
	reply, err := svc.Chat(context.Background(), "u1", history, "what gaps are open?")
	require.NoError(t, err)
	assert.Equal(t, ai.reply, reply)

	require.Len(t, ai.gotHistory, 3)
	assert.Equal(t, "user", ai.gotHistory[2].Role)
	assert.Equal(t, "what gaps are open?", ai.gotHistory[2].Content)

	assert.Contains(t, ai.gotSystemCtx, "evidence_processed = 12")
	assert.Contains(t, ai.gotSystemCtx, "1 defined, 1 addressed, 0 closed")
	assert.Contains(t, ai.gotSystemCtx, "evidence_analyzed")
}

func TestChatSurfacesAIError(t *testing.T) {
	ai := &fakeAI{err: errors.New("provider down")}
	svc := newTestService(ai, &fakeGapRepo{}, &fakeMetricRepo{}, &fakeActivityRepo{})

	_, err := svc.Chat(context.Background(), "u1", nil, "hello")
	assert.Error(t, err)
}

func TestChatDegradesOnPartialStateFailure(t *testing.T) {
	ai := &fakeAI{reply: "ok"}
	svc := newTestService(ai,
		&fakeGapRepo{err: errors.New("gaps unavailable")},
		&fakeMetricRepo{metrics: []*domplat.PlatformMetric{{Name: "m", Value: 1}}},
		&fakeActivityRepo{err: errors.New("activity unavailable")},
	)

	reply, err := svc.Chat(context.Background(), "u1", nil, "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Contains(t, ai.gotSystemCtx, "m = 1")
	assert.NotContains(t, ai.gotSystemCtx, "defined")
}
