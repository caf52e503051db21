package evidence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	platformapp "github.com/edaccred/horus-backend/internal/application/platform"
	domai "github.com/edaccred/horus-backend/internal/domain/ai"
	domain "github.com/edaccred/horus-backend/internal/domain/evidence"
	"github.com/edaccred/horus-backend/internal/domain/feed"
	domplat "github.com/edaccred/horus-backend/internal/domain/platform"
	"github.com/edaccred/horus-backend/internal/domain/standards"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeEvidenceRepo struct {
	mu   sync.Mutex
	rows map[domain.EvidenceID]*domain.Evidence
}

func newFakeEvidenceRepo() *fakeEvidenceRepo {
	return &fakeEvidenceRepo{rows: map[domain.EvidenceID]*domain.Evidence{}}
}

func (r *fakeEvidenceRepo) Save(_ context.Context, e *domain.Evidence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.rows[e.ID] = &cp
	return nil
}

func (r *fakeEvidenceRepo) Get(_ context.Context, institution string, id domain.EvidenceID) (*domain.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok || e.OwnerID != institution {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (r *fakeEvidenceRepo) ListByInstitution(_ context.Context, institution string, ids []domain.EvidenceID) ([]*domain.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[domain.EvidenceID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*domain.Evidence
	for _, e := range r.rows {
		if e.OwnerID != institution {
			continue
		}
		if len(want) > 0 && !want[e.ID] {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeEvidenceRepo) Paginate(_ context.Context, institution string, _, _ int) ([]*domain.Evidence, error) {
	return r.ListByInstitution(context.Background(), institution, nil)
}

func (r *fakeEvidenceRepo) ApplyAnalysis(_ context.Context, id domain.EvidenceID, upd domain.AnalysisUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Title = upd.Title
	e.Summary = upd.Summary
	e.DocumentType = upd.DocumentType
	e.ConfidenceScore = upd.ConfidenceScore
	e.Status = upd.Status
	return nil
}

func (r *fakeEvidenceRepo) UpdateStatus(_ context.Context, id domain.EvidenceID, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = status
	return nil
}

func (r *fakeEvidenceRepo) LinkCriterion(_ context.Context, id domain.EvidenceID, criterionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.CriterionID = criterionID
	e.Status = domain.StatusLinked
	return nil
}

func (r *fakeEvidenceRepo) Delete(_ context.Context, institution string, id domain.EvidenceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok || e.OwnerID != institution {
		return sql.ErrNoRows
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeEvidenceRepo) status(id domain.EvidenceID) domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id].Status
}

type fakeLinkRepo struct {
	mu    sync.Mutex
	links map[domain.EvidenceID][]string
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: map[domain.EvidenceID][]string{}}
}

func (r *fakeLinkRepo) Link(_ context.Context, evidenceID domain.EvidenceID, criterionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.links[evidenceID] {
		if c == criterionID {
			return nil
		}
	}
	r.links[evidenceID] = append(r.links[evidenceID], criterionID)
	return nil
}

func (r *fakeLinkRepo) CriteriaFor(_ context.Context, evidenceID domain.EvidenceID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.links[evidenceID], nil
}

type fakeFileStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{objects: map[string][]byte{}}
}

func (f *fakeFileStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return "http://files.local/" + key, nil
}

func (f *fakeFileStore) Fetch(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (f *fakeFileStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

type fakeStandardsRepo struct {
	criteria []*standards.Criterion
}

func (r *fakeStandardsRepo) Get(_ context.Context, id standards.StandardID) (*standards.Standard, error) {
	return &standards.Standard{ID: id, Name: "ISO 21001", Family: "iso21001"}, nil
}

func (r *fakeStandardsRepo) List(_ context.Context) ([]*standards.Standard, error) { return nil, nil }

func (r *fakeStandardsRepo) Criteria(_ context.Context, _ standards.StandardID) ([]*standards.Criterion, error) {
	return r.criteria, nil
}

func (r *fakeStandardsRepo) SeedCriteria(_ context.Context, _ standards.StandardID, criteria []*standards.Criterion) error {
	r.criteria = criteria
	return nil
}

func (r *fakeStandardsRepo) MatchCriteria(_ context.Context, codePrefix, _ string) ([]*standards.Criterion, error) {
	var out []*standards.Criterion
	for _, c := range r.criteria {
		if strings.HasPrefix(strings.ToLower(c.Code), strings.ToLower(codePrefix)) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeAI struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	block     chan struct{} // when set, AnalyzeFile waits before returning
}

func (a *fakeAI) next() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	if len(a.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	r := a.responses[0]
	if len(a.responses) > 1 {
		a.responses = a.responses[1:]
	}
	return r, nil
}

func (a *fakeAI) Generate(_ context.Context, _ string) (string, error) { return a.next() }

func (a *fakeAI) Chat(_ context.Context, _ []domai.ChatMessage, _ string) (string, error) {
	return a.next()
}

func (a *fakeAI) AnalyzeFile(_ context.Context, _ string, _ domai.FilePayload) (string, error) {
	if a.block != nil {
		<-a.block
	}
	return a.next()
}

type fakeNotifRepo struct {
	mu    sync.Mutex
	saved []*feed.Notification
}

func (r *fakeNotifRepo) Save(_ context.Context, n *feed.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	r.saved = append(r.saved, &cp)
	return nil
}

func (r *fakeNotifRepo) List(_ context.Context, _ string, _ int) ([]*feed.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved, nil
}

func (r *fakeNotifRepo) MarkRead(_ context.Context, _ string, _ int64) error { return nil }

func (r *fakeNotifRepo) titled(title string) []*feed.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*feed.Notification
	for _, n := range r.saved {
		if n.Title == title {
			out = append(out, n)
		}
	}
	return out
}

type fakeActivityRepo struct {
	mu    sync.Mutex
	saved []*feed.Activity
}

func (r *fakeActivityRepo) Save(_ context.Context, a *feed.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.saved = append(r.saved, &cp)
	return nil
}

func (r *fakeActivityRepo) List(_ context.Context, _ string, _ int) ([]*feed.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved, nil
}

type fakeGapRepo struct {
	mu   sync.Mutex
	gaps map[domplat.GapID]*domplat.PlatformGap
}

func newFakeGapRepo() *fakeGapRepo {
	return &fakeGapRepo{gaps: map[domplat.GapID]*domplat.PlatformGap{}}
}

func (r *fakeGapRepo) Save(_ context.Context, g *domplat.PlatformGap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *g
	r.gaps[g.ID] = &cp
	return nil
}

func (r *fakeGapRepo) Get(_ context.Context, userID string, id domplat.GapID) (*domplat.PlatformGap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gaps[id]
	if !ok || g.UserID != userID {
		return nil, sql.ErrNoRows
	}
	cp := *g
	return &cp, nil
}

func (r *fakeGapRepo) List(_ context.Context, userID string, status domplat.GapStatus) ([]*domplat.PlatformGap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domplat.PlatformGap
	for _, g := range r.gaps {
		if g.UserID == userID && (status == "" || g.Status == status) {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeGapRepo) FindOpen(_ context.Context, userID, standard, clause string) ([]*domplat.PlatformGap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domplat.PlatformGap
	for _, g := range r.gaps {
		if g.UserID == userID && g.Status == domplat.GapDefined &&
			strings.EqualFold(g.Standard, standard) && g.Clause == clause {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeMetricRepo struct {
	mu      sync.Mutex
	metrics map[string]*domplat.PlatformMetric
}

func newFakeMetricRepo() *fakeMetricRepo {
	return &fakeMetricRepo{metrics: map[string]*domplat.PlatformMetric{}}
}

func (r *fakeMetricRepo) Upsert(_ context.Context, userID, name, sourceModule string, value float64) (*domplat.PlatformMetric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := userID + "/" + name
	m, ok := r.metrics[key]
	if !ok {
		m = &domplat.PlatformMetric{ID: key, Name: name, UserID: userID}
		r.metrics[key] = m
	} else {
		prev := m.Value
		m.PreviousValue = &prev
	}
	m.Value = value
	m.SourceModule = sourceModule
	cp := *m
	return &cp, nil
}

func (r *fakeMetricRepo) Get(_ context.Context, userID, name string) (*domplat.PlatformMetric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.metrics[userID+"/"+name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMetricRepo) List(_ context.Context, userID string) ([]*domplat.PlatformMetric, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domplat.PlatformMetric
	for _, m := range r.metrics {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeMetricRepo) value(userID, name string) float64 {
	m, err := r.Get(context.Background(), userID, name)
	if err != nil {
		return 0
	}
	return m.Value
}

type harness struct {
	svc      *Service
	repo     *fakeEvidenceRepo
	links    *fakeLinkRepo
	files    *fakeFileStore
	stds     *fakeStandardsRepo
	ai       *fakeAI
	notifs   *fakeNotifRepo
	acts     *fakeActivityRepo
	gaps     *fakeGapRepo
	metrics  *fakeMetricRepo
	platform *platformapp.Service
}

func newHarness(ai *fakeAI, criteria []*standards.Criterion) *harness {
	h := &harness{
		repo:    newFakeEvidenceRepo(),
		links:   newFakeLinkRepo(),
		files:   newFakeFileStore(),
		stds:    &fakeStandardsRepo{criteria: criteria},
		ai:      ai,
		notifs:  &fakeNotifRepo{},
		acts:    &fakeActivityRepo{},
		gaps:    newFakeGapRepo(),
		metrics: newFakeMetricRepo(),
	}
	clock := fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	h.platform = &platformapp.Service{
		Gaps:          h.gaps,
		Metrics:       h.metrics,
		Notifications: h.notifs,
		Clock:         clock,
		Log:           zap.NewNop(),
	}
	h.svc = &Service{
		Repo:          h.repo,
		Links:         h.links,
		Files:         h.files,
		Standards:     h.stds,
		AI:            ai,
		Platform:      h.platform,
		Notifications: h.notifs,
		Activities:    h.acts,
		Clock:         clock,
		Log:           zap.NewNop(),
	}
	return h
}

func iso21001Criteria() []*standards.Criterion {
	return []*standards.Criterion{
		{ID: "c-41", StandardID: "std-1", Code: "4.1", Title: "Understanding the organization"},
		{ID: "c-42", StandardID: "std-1", Code: "4.2", Title: "Interested parties"},
		{ID: "c-72", StandardID: "std-1", Code: "7.2", Title: "Competence"},
	}
}

const analyzedResponse = `{
  "document_type": "policy",
  "related_standard": "ISO 21001",
  "mapped_criteria": ["4.1", "4.2"],
  "confidence": 88,
  "risk_flag": false,
  "summary": "Quality policy covering organizational context.",
  "title": "Quality Policy 2026"
}`

func TestUploadCreatesProcessingRow(t *testing.T) {
	h := newHarness(&fakeAI{responses: []string{analyzedResponse}}, iso21001Criteria())

	ev, task, err := h.svc.Upload(context.Background(), UploadCommand{
		Institution: "acme-uni",
		UserID:      "u1",
		Filename:    "policy.pdf",
		MimeType:    "application/pdf",
		Data:        []byte("pdfbytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, ev.Status)
	assert.Equal(t, "acme-uni", ev.OwnerID)
	assert.Contains(t, ev.FileURL, "acme-uni/")
	assert.Equal(t, ev.ID, task.EvidenceID)
	assert.Equal(t, []byte("pdfbytes"), task.Data)
}

func TestAnalyzeSuccessLinksAndNotifies(t *testing.T) {
	h := newHarness(&fakeAI{responses: []string{analyzedResponse}}, iso21001Criteria())
	ctx := context.Background()

	_, task, err := h.svc.Upload(ctx, UploadCommand{
		Institution: "acme-uni", UserID: "u1",
		Filename: "policy.pdf", MimeType: "application/pdf", Data: []byte("x"),
	})
	require.NoError(t, err)

	assert.True(t, h.svc.AnalyzeUntilDone(task))

	e, err := h.repo.Get(ctx, "acme-uni", task.EvidenceID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAnalyzed, e.Status)
	assert.Equal(t, "Quality Policy 2026", e.Title)
	assert.Equal(t, 88, e.ConfidenceScore)

	linked, err := h.links.CriteriaFor(ctx, task.EvidenceID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c-41", "c-42"}, linked)

	assert.Equal(t, 1.0, h.metrics.value("u1", "evidence_processed"))
	assert.Len(t, h.notifs.titled("Evidence analyzed"), 1)

	require.Len(t, h.acts.saved, 1)
	assert.Equal(t, "evidence_analyzed", h.acts.saved[0].Action)
}

func TestAnalyzeNoMatchesYieldsUnmapped(t *testing.T) {
	resp := `{"document_type":"misc","related_standard":"","mapped_criteria":["99.9"],"confidence":30,"risk_flag":false,"summary":"unclear","title":"Scan"}`
	h := newHarness(&fakeAI{responses: []string{resp}}, iso21001Criteria())
	ctx := context.Background()

	_, task, err := h.svc.Upload(ctx, UploadCommand{
		Institution: "acme-uni", UserID: "u1", Filename: "scan.pdf", Data: []byte("x"),
	})
	require.NoError(t, err)

	h.svc.AnalyzeUntilDone(task)

	assert.Equal(t, domain.StatusUnmapped, h.repo.status(task.EvidenceID))
	linked, _ := h.links.CriteriaFor(ctx, task.EvidenceID)
	assert.Empty(t, linked)
}

func TestAnalyzeAIErrorMarksFailed(t *testing.T) {
	h := newHarness(&fakeAI{err: errors.New("upstream down")}, iso21001Criteria())
	ctx := context.Background()

	_, task, err := h.svc.Upload(ctx, UploadCommand{
		Institution: "acme-uni", UserID: "u1", Filename: "doc.pdf", Data: []byte("x"),
	})
	require.NoError(t, err)

	assert.False(t, h.svc.AnalyzeUntilDone(task))

	assert.Equal(t, domain.StatusFailed, h.repo.status(task.EvidenceID))
	failures := h.notifs.titled("Evidence analysis failed")
	require.Len(t, failures, 1)
	assert.Equal(t, feed.TypeError, failures[0].Type)
}

func TestAnalyzeUnparseableResponseMarksFailed(t *testing.T) {
	h := newHarness(&fakeAI{responses: []string{"I cannot read this document."}}, iso21001Criteria())

	_, task, err := h.svc.Upload(context.Background(), UploadCommand{
		Institution: "acme-uni", UserID: "u1", Filename: "doc.pdf", Data: []byte("x"),
	})
	require.NoError(t, err)

	assert.False(t, h.svc.AnalyzeUntilDone(task))

	assert.Equal(t, domain.StatusFailed, h.repo.status(task.EvidenceID))
}

func TestReanalyzeCarriesStoredMimeType(t *testing.T) {
	h := newHarness(&fakeAI{responses: []string{analyzedResponse}}, iso21001Criteria())
	ctx := context.Background()

	ev, _, err := h.svc.Upload(ctx, UploadCommand{
		Institution: "acme-uni",
		UserID:      "u1",
		Filename:    "policy.pdf",
		MimeType:    "application/pdf",
		Data:        []byte("pdfbytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", ev.MimeType)

	cmd, err := h.svc.Reanalyze(ctx, "acme-uni", "u1", ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", cmd.MimeType)
	assert.Equal(t, []byte("pdfbytes"), cmd.Data)
}

func TestAnalyzeConfidenceClamped(t *testing.T) {
	resp := `{"document_type":"policy","related_standard":"ISO 21001","mapped_criteria":["4.1"],"confidence":150,"risk_flag":false,"summary":"s","title":"t"}`
	h := newHarness(&fakeAI{responses: []string{resp}}, iso21001Criteria())

	_, task, err := h.svc.Upload(context.Background(), UploadCommand{
		Institution: "acme-uni", UserID: "u1", Filename: "doc.pdf", Data: []byte("x"),
	})
	require.NoError(t, err)

	h.svc.AnalyzeUntilDone(task)

	e, err := h.repo.Get(context.Background(), "acme-uni", task.EvidenceID)
	require.NoError(t, err)
	assert.Equal(t, 100, e.ConfidenceScore)
}

func TestAnalyzeAddressesOpenGaps(t *testing.T) {
	h := newHarness(&fakeAI{responses: []string{analyzedResponse}}, iso21001Criteria())
	ctx := context.Background()

	for _, clause := range []string{"4.1", "4.2"} {
		_, err := h.platform.CreateGap(ctx, platformapp.CreateGapCommand{
			UserID: "u1", Standard: "ISO 21001", Clause: clause,
		})
		require.NoError(t, err)
	}
	// a gap for an unrelated clause stays untouched
	other, err := h.platform.CreateGap(ctx, platformapp.CreateGapCommand{
		UserID: "u1", Standard: "ISO 21001", Clause: "7.2",
	})
	require.NoError(t, err)

	_, task, err := h.svc.Upload(ctx, UploadCommand{
		Institution: "acme-uni", UserID: "u1", Filename: "policy.pdf", Data: []byte("x"),
	})
	require.NoError(t, err)

	h.svc.AnalyzeUntilDone(task)

	addressed, err := h.gaps.List(ctx, "u1", domplat.GapAddressed)
	require.NoError(t, err)
	assert.Len(t, addressed, 2)
	for _, g := range addressed {
		assert.Equal(t, []string{string(task.EvidenceID)}, g.EvidenceIDs)
	}

	untouched, err := h.gaps.Get(ctx, "u1", other.ID)
	require.NoError(t, err)
	assert.Equal(t, domplat.GapDefined, untouched.Status)

	assert.Len(t, h.notifs.titled("Gap Addressed"), 2)
	assert.Equal(t, 2.0, h.metrics.value("u1", "gaps_addressed_by_ai"))
}

func TestReanalyzeRejectedWhileInFlight(t *testing.T) {
	block := make(chan struct{})
	ai := &fakeAI{responses: []string{analyzedResponse}, block: block}
	h := newHarness(ai, iso21001Criteria())
	ctx := context.Background()

	_, task, err := h.svc.Upload(ctx, UploadCommand{
		Institution: "acme-uni", UserID: "u1", Filename: "policy.pdf", Data: []byte("x"),
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		h.svc.AnalyzeUntilDone(task)
		close(done)
	}()

	// wait until the background run is parked inside the AI call
	require.Eventually(t, func() bool {
		_, err := h.svc.Reanalyze(ctx, "acme-uni", "u1", task.EvidenceID)
		return errors.Is(err, ErrAnalysisInFlight)
	}, time.Second, 5*time.Millisecond)

	close(block)
	<-done

	// once finished the guard is released
	cmd, err := h.svc.Reanalyze(ctx, "acme-uni", "u1", task.EvidenceID)
	require.NoError(t, err)
	assert.Equal(t, task.EvidenceID, cmd.EvidenceID)
	assert.Equal(t, domain.StatusProcessing, h.repo.status(task.EvidenceID))
}

func TestDeleteRemovesObjectAndRow(t *testing.T) {
	h := newHarness(&fakeAI{responses: []string{analyzedResponse}}, iso21001Criteria())
	ctx := context.Background()

	ev, _, err := h.svc.Upload(ctx, UploadCommand{
		Institution: "acme-uni", UserID: "u1", Filename: "policy.pdf", Data: []byte("x"),
	})
	require.NoError(t, err)

	require.NoError(t, h.svc.Delete(ctx, "acme-uni", ev.ID))

	_, err = h.repo.Get(ctx, "acme-uni", ev.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.Len(t, h.files.removed, 1)
	assert.Contains(t, h.files.removed[0], string(ev.ID))
}

func TestAttachLinksExplicitly(t *testing.T) {
	h := newHarness(&fakeAI{}, iso21001Criteria())
	ctx := context.Background()

	ev, _, err := h.svc.Upload(ctx, UploadCommand{
		Institution: "acme-uni", UserID: "u1", Filename: "policy.pdf", Data: []byte("x"),
	})
	require.NoError(t, err)

	require.NoError(t, h.svc.Attach(ctx, "acme-uni", ev.ID, "c-72"))

	e, err := h.repo.Get(ctx, "acme-uni", ev.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLinked, e.Status)
	assert.Equal(t, "c-72", e.CriterionID)

	linked, _ := h.links.CriteriaFor(ctx, ev.ID)
	assert.Equal(t, []string{"c-72"}, linked)
}

func TestAttachUnknownEvidence(t *testing.T) {
	h := newHarness(&fakeAI{}, iso21001Criteria())
	err := h.svc.Attach(context.Background(), "acme-uni", "missing", "c-72")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, domain.StatusProcessing.Terminal())
	assert.True(t, domain.StatusAnalyzed.Terminal())
	assert.True(t, domain.StatusUnmapped.Terminal())
	assert.True(t, domain.StatusFailed.Terminal())
}
