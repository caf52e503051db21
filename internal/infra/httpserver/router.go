package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appassistant "github.com/edaccred/horus-backend/internal/application/assistant"
	appevidence "github.com/edaccred/horus-backend/internal/application/evidence"
	appmapping "github.com/edaccred/horus-backend/internal/application/mapping"
	appplatform "github.com/edaccred/horus-backend/internal/application/platform"
	appreports "github.com/edaccred/horus-backend/internal/application/reports"
	domai "github.com/edaccred/horus-backend/internal/domain/ai"
	domev "github.com/edaccred/horus-backend/internal/domain/evidence"
	"github.com/edaccred/horus-backend/internal/domain/feed"
	"github.com/edaccred/horus-backend/internal/domain/platform"
	domrep "github.com/edaccred/horus-backend/internal/domain/reports"
	"github.com/edaccred/horus-backend/internal/domain/standards"
	"github.com/edaccred/horus-backend/internal/middleware"
)

type Router struct {
	evidenceSvc   *appevidence.Service
	mappingSvc    *appmapping.Service
	platformSvc   *appplatform.Service
	reportsSvc    *appreports.Service
	assistantSvc  *appassistant.Service
	standardsRepo standards.Repository
	notifications feed.NotificationRepository
	activities    feed.ActivityRepository
	maxUploadSize int64
	log           *zap.Logger
}

type Deps struct {
	Evidence      *appevidence.Service
	Mapping       *appmapping.Service
	Platform      *appplatform.Service
	Reports       *appreports.Service
	Assistant     *appassistant.Service
	Standards     standards.Repository
	Notifications feed.NotificationRepository
	Activities    feed.ActivityRepository
	MaxUploadSize int64
	Log           *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	r := &Router{
		evidenceSvc:   d.Evidence,
		mappingSvc:    d.Mapping,
		platformSvc:   d.Platform,
		reportsSvc:    d.Reports,
		assistantSvc:  d.Assistant,
		standardsRepo: d.Standards,
		notifications: d.Notifications,
		activities:    d.Activities,
		maxUploadSize: d.MaxUploadSize,
		log:           d.Log,
	}
	mux := chi.NewRouter()

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.RequireTenant)

		rt.Post("/evidence", r.wrap(r.handleUploadEvidence))
		rt.Get("/evidence", r.wrap(r.handleListEvidence))
		rt.Get("/evidence/{id}", r.wrap(r.handleGetEvidence))
		rt.Delete("/evidence/{id}", r.wrap(r.handleDeleteEvidence))
		rt.Post("/evidence/{id}/reanalyze", r.wrap(r.handleReanalyzeEvidence))
		rt.Post("/evidence/{id}/attach", r.wrap(r.handleAttachEvidence))

		rt.Get("/standards", r.wrap(r.handleListStandards))
		rt.Post("/standards/{id}/mapping", r.wrap(r.handleRunMapping))
		rt.Get("/standards/{id}/mapping", r.wrap(r.handleGetMapping))

		rt.Post("/reports", r.wrap(r.handleGenerateReport))
		rt.Get("/reports", r.wrap(r.handleListReports))
		rt.Get("/reports/{id}", r.wrap(r.handleGetReport))
		rt.Post("/reports/{id}/archive", r.wrap(r.handleArchiveReport))

		rt.Get("/gaps", r.wrap(r.handleListGaps))
		rt.Post("/gaps", r.wrap(r.handleCreateGap))
		rt.Post("/gaps/{id}/close", r.wrap(r.handleCloseGap))

		rt.Post("/assistant/chat", r.wrap(r.handleAssistantChat))

		rt.Get("/notifications", r.wrap(r.handleListNotifications))
		rt.Post("/notifications/{id}/read", r.wrap(r.handleMarkNotificationRead))
		rt.Get("/activity", r.wrap(r.handleListActivity))

		rt.Get("/platform/metrics", r.wrap(r.handleListPlatformMetrics))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks validation failures so wrap can answer 400 instead of 500.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var br badRequest
			var transition platform.ErrBadTransition
			switch {
			case errors.Is(err, sql.ErrNoRows):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, domai.ErrQuotaExceeded):
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
			case errors.Is(err, appevidence.ErrAnalysisInFlight):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.As(err, &transition):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.As(err, &br):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				r.log.Error("handler error", zap.String("path", req.URL.Path), zap.Error(err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func tenantAndUser(req *http.Request) (string, string) {
	tenant := chi.URLParam(req, "tenant")
	user := req.Header.Get("X-User-ID")
	if user == "" {
		user = tenant
	}
	return tenant, user
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/{tenant}/evidence  (multipart field "file")
// Replies immediately; analysis runs in the background until done.
func (r *Router) handleUploadEvidence(w http.ResponseWriter, req *http.Request) error {
	tenant, user := tenantAndUser(req)
	if err := middleware.ValidateTenantID(tenant); err != nil {
		return badRequest{err}
	}

	if err := req.ParseMultipartForm(r.maxUploadSize); err != nil {
		return badRequest{fmt.Errorf("parse upload: %w", err)}
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		return badRequest{fmt.Errorf("missing file field: %w", err)}
	}
	defer file.Close()

	filename := middleware.SanitizeFilename(header.Filename)
	if err := middleware.ValidateUpload(filename, header.Size, r.maxUploadSize); err != nil {
		return badRequest{err}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	ev, task, err := r.evidenceSvc.Upload(req.Context(), appevidence.UploadCommand{
		Institution: tenant,
		UserID:      user,
		Filename:    filename,
		MimeType:    header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		return err
	}

	middleware.IncrementAnalyses()
	go func() {
		middleware.IncrementAnalysesRunning()
		defer middleware.DecrementAnalysesRunning()
		if !r.evidenceSvc.AnalyzeUntilDone(task) {
			middleware.IncrementAnalysesFailed()
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	return writeJSON(w, map[string]any{
		"id":       ev.ID,
		"status":   ev.Status,
		"message":  "analysis started in background",
		"queuedAt": time.Now(),
	})
}

// GET /v1/{tenant}/evidence?page=&page_size=
func (r *Router) handleListEvidence(w http.ResponseWriter, req *http.Request) error {
	tenant, _ := tenantAndUser(req)
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.evidenceSvc.Paginate(req.Context(), tenant, page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/{tenant}/evidence/{id}
func (r *Router) handleGetEvidence(w http.ResponseWriter, req *http.Request) error {
	tenant, _ := tenantAndUser(req)
	ev, err := r.evidenceSvc.Get(req.Context(), tenant, domev.EvidenceID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, ev)
}

// DELETE /v1/{tenant}/evidence/{id}
func (r *Router) handleDeleteEvidence(w http.ResponseWriter, req *http.Request) error {
	tenant, _ := tenantAndUser(req)
	if err := r.evidenceSvc.Delete(req.Context(), tenant, domev.EvidenceID(chi.URLParam(req, "id"))); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/{tenant}/evidence/{id}/reanalyze
func (r *Router) handleReanalyzeEvidence(w http.ResponseWriter, req *http.Request) error {
	tenant, user := tenantAndUser(req)
	task, err := r.evidenceSvc.Reanalyze(req.Context(), tenant, user, domev.EvidenceID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}

	middleware.IncrementAnalyses()
	go func() {
		middleware.IncrementAnalysesRunning()
		defer middleware.DecrementAnalysesRunning()
		if !r.evidenceSvc.AnalyzeUntilDone(task) {
			middleware.IncrementAnalysesFailed()
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	return writeJSON(w, map[string]any{
		"id":      task.EvidenceID,
		"status":  domev.StatusProcessing,
		"message": "re-analysis started in background",
	})
}

// POST /v1/{tenant}/evidence/{id}/attach  {"criterion_id": "..."}
func (r *Router) handleAttachEvidence(w http.ResponseWriter, req *http.Request) error {
	tenant, _ := tenantAndUser(req)
	var body struct {
		CriterionID string `json:"criterion_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest{err}
	}
	if body.CriterionID == "" {
		return badRequest{fmt.Errorf("criterion_id is required")}
	}
	if err := r.evidenceSvc.Attach(req.Context(), tenant, domev.EvidenceID(chi.URLParam(req, "id")), body.CriterionID); err != nil {
		return err
	}
	return writeJSON(w, map[string]string{"status": "linked"})
}

// GET /v1/{tenant}/standards
func (r *Router) handleListStandards(w http.ResponseWriter, req *http.Request) error {
	list, err := r.standardsRepo.List(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// POST /v1/{tenant}/standards/{id}/mapping  {"force": bool, "evidence_ids": []}
func (r *Router) handleRunMapping(w http.ResponseWriter, req *http.Request) error {
	tenant, _ := tenantAndUser(req)
	var body struct {
		Force       bool     `json:"force"`
		EvidenceIDs []string `json:"evidence_ids"`
	}
	if req.ContentLength > 0 {
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return badRequest{err}
		}
	}

	rows, err := r.mappingSvc.Analyze(req.Context(),
		standards.StandardID(chi.URLParam(req, "id")), tenant, body.EvidenceIDs, body.Force)
	if err != nil {
		return err
	}
	return writeJSON(w, rows)
}

// GET /v1/{tenant}/standards/{id}/mapping
func (r *Router) handleGetMapping(w http.ResponseWriter, req *http.Request) error {
	tenant, _ := tenantAndUser(req)
	rows, err := r.mappingSvc.Mappings.ListFor(req.Context(),
		standards.StandardID(chi.URLParam(req, "id")), tenant)
	if err != nil {
		return err
	}
	return writeJSON(w, rows)
}

// POST /v1/{tenant}/reports  {"standard_id": "..."}
func (r *Router) handleGenerateReport(w http.ResponseWriter, req *http.Request) error {
	tenant, _ := tenantAndUser(req)
	var body struct {
		StandardID string `json:"standard_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest{err}
	}
	if body.StandardID == "" {
		return badRequest{fmt.Errorf("standard_id is required")}
	}

	report, err := r.reportsSvc.Generate(req.Context(), tenant, standards.StandardID(body.StandardID))
	if err != nil {
		return err
	}
	return writeJSON(w, report)
}

// GET /v1/{tenant}/reports?page=&page_size=
func (r *Router) handleListReports(w http.ResponseWriter, req *http.Request) error {
	tenant, _ := tenantAndUser(req)
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.reportsSvc.Paginate(req.Context(), tenant, page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/{tenant}/reports/{id}
func (r *Router) handleGetReport(w http.ResponseWriter, req *http.Request) error {
	tenant, _ := tenantAndUser(req)
	report, err := r.reportsSvc.Get(req.Context(), tenant, domrep.ReportID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, report)
}

// POST /v1/{tenant}/reports/{id}/archive
func (r *Router) handleArchiveReport(w http.ResponseWriter, req *http.Request) error {
	tenant, _ := tenantAndUser(req)
	if err := r.reportsSvc.Archive(req.Context(), tenant, domrep.ReportID(chi.URLParam(req, "id"))); err != nil {
		return err
	}
	return writeJSON(w, map[string]string{"status": "archived"})
}

// GET /v1/{tenant}/gaps?status=
func (r *Router) handleListGaps(w http.ResponseWriter, req *http.Request) error {
	_, user := tenantAndUser(req)
	list, err := r.platformSvc.ListGaps(req.Context(), user, platform.GapStatus(req.URL.Query().Get("status")))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// POST /v1/{tenant}/gaps
func (r *Router) handleCreateGap(w http.ResponseWriter, req *http.Request) error {
	_, user := tenantAndUser(req)
	var body struct {
		Standard    string `json:"standard"`
		Clause      string `json:"clause"`
		Description string `json:"description"`
		Severity    string `json:"severity"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest{err}
	}
	if body.Standard == "" || body.Clause == "" {
		return badRequest{fmt.Errorf("standard and clause are required")}
	}

	g, err := r.platformSvc.CreateGap(req.Context(), appplatform.CreateGapCommand{
		UserID:      user,
		Standard:    body.Standard,
		Clause:      body.Clause,
		Description: body.Description,
		Severity:    platform.Severity(body.Severity),
	})
	if err != nil {
		return err
	}
	w.WriteHeader(http.StatusCreated)
	return writeJSON(w, g)
}

// POST /v1/{tenant}/gaps/{id}/close
func (r *Router) handleCloseGap(w http.ResponseWriter, req *http.Request) error {
	_, user := tenantAndUser(req)
	g, err := r.platformSvc.CloseGap(req.Context(), user, platform.GapID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return writeJSON(w, g)
}

// POST /v1/{tenant}/assistant/chat  {"message": "...", "history": [...]}
func (r *Router) handleAssistantChat(w http.ResponseWriter, req *http.Request) error {
	_, user := tenantAndUser(req)
	var body struct {
		Message string             `json:"message"`
		History []domai.ChatMessage `json:"history"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest{err}
	}
	if body.Message == "" {
		return badRequest{fmt.Errorf("message is required")}
	}

	reply, err := r.assistantSvc.Chat(req.Context(), user, body.History, body.Message)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]string{"reply": reply})
}

// GET /v1/{tenant}/notifications?limit=
func (r *Router) handleListNotifications(w http.ResponseWriter, req *http.Request) error {
	_, user := tenantAndUser(req)
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.notifications.List(req.Context(), user, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// POST /v1/{tenant}/notifications/{id}/read
func (r *Router) handleMarkNotificationRead(w http.ResponseWriter, req *http.Request) error {
	_, user := tenantAndUser(req)
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		return badRequest{fmt.Errorf("invalid notification id")}
	}
	if err := r.notifications.MarkRead(req.Context(), user, id); err != nil {
		return err
	}
	return writeJSON(w, map[string]string{"status": "read"})
}

// GET /v1/{tenant}/activity?limit=
func (r *Router) handleListActivity(w http.ResponseWriter, req *http.Request) error {
	_, user := tenantAndUser(req)
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.activities.List(req.Context(), user, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/{tenant}/platform/metrics
func (r *Router) handleListPlatformMetrics(w http.ResponseWriter, req *http.Request) error {
	_, user := tenantAndUser(req)
	list, err := r.platformSvc.ListMetrics(req.Context(), user)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}
