package launcher

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Git-me-Harish/Video-KYC/internal/shared"
)

const (
	msgLaunched     = "KYC Verification App Launched"
	msgLaunchFailed = "Failed to launch KYC verification."
	msgScriptError  = "Verification script encountered an error."
)

// Enqueuer hands a verification run to the background worker.
type Enqueuer interface {
	EnqueueVerification(ctx context.Context, requestedBy string) (string, error)
}

// Recorder receives launch outcomes for metrics.
type Recorder interface {
	ObserveLaunch(mode, outcome string)
}

// Handler exposes the verification launch endpoints.
type Handler struct {
	logger   *slog.Logger
	runner   Runner
	enqueuer Enqueuer
	recorder Recorder
}

// NewHandler constructs a Handler. enqueuer and recorder may be nil.
func NewHandler(logger *slog.Logger, runner Runner, enqueuer Enqueuer, recorder Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, runner: runner, enqueuer: enqueuer, recorder: recorder}
}

// MountRoutes registers the synchronous launch route. It reads no session
// state and holds the request open until the script exits.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/launch-kyc", h.launch)
}

// MountQueueRoutes registers the queued launch route. It expects the request
// session in the context.
func (h *Handler) MountQueueRoutes(r chi.Router) {
	r.With(shared.RequireSession).Post("/launch-kyc/async", h.launchAsync)
}

func (h *Handler) launch(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("request_id", chimw.GetReqID(r.Context())))

	result, err := h.runner.RunVerification(r.Context())
	if err != nil {
		logger.Error("launch verification", slog.Any("error", err))
		h.observe("sync", "error")
		writeText(w, http.StatusInternalServerError, msgLaunchFailed)
		return
	}
	if result.ExitCode != 0 {
		logger.Error("verification exited", slog.Int("exit_code", result.ExitCode), slog.String("stderr", result.Stderr))
		h.observe("sync", "error")
		writeText(w, http.StatusInternalServerError, msgLaunchFailed)
		return
	}
	if result.Stderr != "" {
		logger.Error("verification stderr", slog.String("stderr", result.Stderr))
		h.observe("sync", "script_error")
		writeText(w, http.StatusInternalServerError, msgScriptError)
		return
	}
	logger.Info("verification finished", slog.String("stdout", result.Stdout), slog.Duration("duration", result.Duration))
	h.observe("sync", "success")
	writeText(w, http.StatusOK, msgLaunched)
}

type taskResponse struct {
	TaskID string `json:"task_id"`
}

func (h *Handler) launchAsync(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		h.observe("async", "disabled")
		shared.WriteMessage(w, http.StatusServiceUnavailable, "Background verification is disabled", "")
		return
	}
	sess := shared.SessionFromContext(r.Context())
	taskID, err := h.enqueuer.EnqueueVerification(r.Context(), sess.Claim.UserID)
	if err != nil {
		h.logger.Error("enqueue verification",
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.Any("error", err),
		)
		h.observe("async", "error")
		shared.WriteMessage(w, http.StatusInternalServerError, "Internal server error", "")
		return
	}
	h.observe("async", "queued")
	shared.WriteJSON(w, http.StatusAccepted, taskResponse{TaskID: taskID})
}

func (h *Handler) observe(mode, outcome string) {
	if h.recorder != nil {
		h.recorder.ObserveLaunch(mode, outcome)
	}
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}
