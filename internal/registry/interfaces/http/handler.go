package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"utility-registry/internal/audit"
	"utility-registry/internal/auth"
	"utility-registry/internal/observability/metrics"
	"utility-registry/internal/registry/application"
	registry "utility-registry/internal/registry/domain"
)

const (
	routeGenerate = "registries_generate"
	routeRuns     = "registries_runs"
	routeRun      = "registries_run"
)

// GenerateRequest is the body of POST /api/v1/registries/generate.
type GenerateRequest struct {
	Month      int    `json:"month"`
	Year       int    `json:"year"`
	OutputRoot string `json:"output_root,omitempty"`
}

// GenerateResponse carries the run summary and the progress transcript.
type GenerateResponse struct {
	Summary  *application.RunSummary `json:"summary,omitempty"`
	Progress []string                `json:"progress"`
	Error    string                  `json:"error,omitempty"`
}

// Handler provides registry HTTP endpoints.
type Handler struct {
	generator   *application.Generator
	history     *application.RunHistory
	auditLogger audit.Logger
	outputRoot  string
	logger      *slog.Logger
}

// NewHandler constructs a handler. outputRoot is the base for request-supplied
// output roots; empty means the settings save path.
func NewHandler(generator *application.Generator, history *application.RunHistory, auditLogger audit.Logger, outputRoot string, logger *slog.Logger) (*Handler, error) {
	if generator == nil {
		return nil, errors.New("registry handler: nil generator")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		generator:   generator,
		history:     history,
		auditLogger: auditLogger,
		outputRoot:  outputRoot,
		logger:      logger,
	}, nil
}

// Register mounts the registry routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/registries/generate", h.handleGenerate)
	mux.HandleFunc("GET /api/v1/registries/runs", h.handleListRuns)
	mux.HandleFunc("GET /api/v1/registries/runs/{id}", h.handleGetRun)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		h.fail(w, routeGenerate, http.StatusBadRequest, "read body error")
		return
	}
	defer r.Body.Close()

	var req GenerateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.fail(w, routeGenerate, http.StatusBadRequest, "invalid json")
		return
	}
	period, err := registry.NewInputPeriod(req.Month, req.Year)
	if err != nil {
		h.fail(w, routeGenerate, http.StatusBadRequest, err.Error())
		return
	}
	root, err := h.resolveOutputRoot(req.OutputRoot)
	if err != nil {
		h.fail(w, routeGenerate, http.StatusBadRequest, err.Error())
		return
	}

	progress := &application.Collector{}
	sink := application.MultiSink(progress, application.NewLogSink(h.logger, "source", "http"))
	summary, err := h.generator.Run(r.Context(), application.RunRequest{
		Period:     period,
		OutputRoot: root,
		Progress:   sink,
	})
	h.logAudit(r, period, summary, err)

	resp := GenerateResponse{Summary: summary, Progress: progress.Lines()}
	switch {
	case err == nil, errors.Is(err, application.ErrRunCanceled):
		h.writeJSON(w, routeGenerate, http.StatusOK, resp)
	case application.IsSetupError(err):
		resp.Error = err.Error()
		h.writeJSON(w, routeGenerate, http.StatusUnprocessableEntity, resp)
	default:
		resp.Error = err.Error()
		h.writeJSON(w, routeGenerate, http.StatusInternalServerError, resp)
	}
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs := h.history.List()
	if runs == nil {
		runs = []application.RunSummary{}
	}
	if value := r.URL.Query().Get("limit"); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit <= 0 {
			h.fail(w, routeRuns, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if limit < len(runs) {
			runs = runs[:limit]
		}
	}
	h.writeJSON(w, routeRuns, http.StatusOK, runs)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.history.Get(r.PathValue("id"))
	if !ok {
		h.fail(w, routeRun, http.StatusNotFound, "run not found")
		return
	}
	h.writeJSON(w, routeRun, http.StatusOK, run)
}

// resolveOutputRoot keeps request-supplied roots inside the configured base.
func (h *Handler) resolveOutputRoot(requested string) (string, error) {
	if requested == "" {
		return h.outputRoot, nil
	}
	if !filepath.IsLocal(requested) {
		return "", errors.New("output_root must be a relative path without ..")
	}
	return filepath.Join(h.outputRoot, requested), nil
}

func (h *Handler) logAudit(r *http.Request, period registry.Period, summary *application.RunSummary, runErr error) {
	if h.auditLogger == nil {
		return
	}
	fields := map[string]any{"period": period.String()}
	entry := audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       audit.ActionRegistryGenerate,
		ResourceType: audit.ResourceRegistryRun,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	}
	if summary != nil {
		entry.ResourceID = summary.RunID
		fields["total"] = summary.Total
		fields["succeeded"] = summary.Succeeded
		fields["failed"] = summary.Failed
		fields["canceled"] = summary.Canceled
	}
	if runErr != nil {
		fields["error"] = runErr.Error()
	}
	entry.Metadata, _ = json.Marshal(fields)
	if err := h.auditLogger.Log(r.Context(), entry); err != nil {
		h.logger.Warn("registry_audit_failed", "err", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, route string, status int, msg string) {
	h.writeJSON(w, route, status, map[string]string{"error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, route string, status int, body any) {
	metrics.IncHTTPRequest(route, strconv.Itoa(status))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
