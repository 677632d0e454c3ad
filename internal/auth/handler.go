package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Git-me-Harish/Video-KYC/internal/shared"
	"github.com/Git-me-Harish/Video-KYC/internal/view"
)

const maxBodyBytes = 1 << 20

const (
	msgInternal           = "Internal server error"
	msgInvalidCredentials = "Invalid email or password"
	msgUserExists         = "User already exists"
	msgLogoutFailed       = "Logout failed"
)

// Recorder receives auth outcomes for metrics.
type Recorder interface {
	ObserveAuth(event, outcome string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	recorder       Recorder
}

// NewHandler constructs a Handler instance. recorder may be nil.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, recorder Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		recorder:       recorder,
	}
}

// MountRoutes registers the login and registration routes. They expect the
// request session in the context.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(shared.RedirectAuthenticated).Get("/login", h.showLogin)
	r.With(shared.RedirectAuthenticated).Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
}

// MountLogout registers the logout route. It loads the session itself so a
// store failure still answers with the logout envelope.
func (h *Handler) MountLogout(r chi.Router) {
	r.Post("/logout", h.handleLogout)
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/login.html", "Log in")
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/register.html", "Register")
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, name, title string) {
	data := view.TemplateData{Title: title, CurrentPath: r.URL.Path}
	if err := h.templates.Render(w, name, data); err != nil {
		h.logger.Error("render page", slog.String("page", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := decodeInput(r, &in, func(get func(string) string) {
		in = RegisterInput{FullName: get("fullName"), Email: get("email"), Password: get("password")}
	}); err != nil {
		h.writeError(w, r, "register", err)
		return
	}

	user, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, "register", err)
		return
	}
	h.logger.Info("user registered", slog.String("user_id", user.ID))
	h.observe("register", "success")
	shared.WriteMessage(w, http.StatusCreated, "Registration successful", shared.LoginPath)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := decodeInput(r, &in, func(get func(string) string) {
		in = LoginInput{Email: get("email"), Password: get("password")}
	}); err != nil {
		h.writeError(w, r, "login", err)
		return
	}

	user, err := h.service.Authenticate(r.Context(), in)
	if err != nil {
		h.writeError(w, r, "login", err)
		return
	}

	if prev := shared.SessionFromContext(r.Context()); prev.Active() {
		if err := h.sessionManager.Revoke(r.Context(), prev); err != nil {
			h.logger.Warn("revoke previous session", slog.Any("error", err))
		}
	}
	if _, err := h.sessionManager.Create(r.Context(), w, user.Claim()); err != nil {
		h.writeError(w, r, "login", err)
		return
	}
	h.observe("login", "success")
	shared.WriteMessage(w, http.StatusOK, "Login successful", shared.HomePath)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionManager.Load(r.Context(), r)
	if err == nil {
		err = h.sessionManager.Destroy(r.Context(), w, sess)
	}
	if err != nil {
		h.logger.Error("logout", slog.String("request_id", requestID(r)), slog.Any("error", err))
		h.observe("logout", "error")
		shared.WriteMessage(w, http.StatusInternalServerError, msgLogoutFailed, "")
		return
	}
	h.observe("logout", "success")
	shared.WriteMessage(w, http.StatusOK, "Logout successful", shared.LoginPath)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, event string, err error) {
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		h.observe(event, "invalid")
		shared.WriteJSON(w, http.StatusBadRequest, shared.MessageResponse{Message: "Invalid request", Errors: verr.Fields})
	case errors.Is(err, shared.ErrConflict):
		h.observe(event, "conflict")
		shared.WriteMessage(w, http.StatusBadRequest, msgUserExists, "")
	case errors.Is(err, shared.ErrInvalidCredentials):
		h.observe(event, "rejected")
		shared.WriteMessage(w, http.StatusBadRequest, msgInvalidCredentials, "")
	default:
		h.observe(event, "error")
		h.logger.Error(event+" failed", slog.String("request_id", requestID(r)), slog.Any("error", err))
		shared.WriteMessage(w, http.StatusInternalServerError, msgInternal, "")
	}
}

func (h *Handler) observe(event, outcome string) {
	if h.recorder != nil {
		h.recorder.ObserveAuth(event, outcome)
	}
}

// decodeInput fills dst from a JSON body, or calls fromForm with a form
// accessor for urlencoded and multipart submissions.
func decodeInput(r *http.Request, dst any, fromForm func(get func(string) string)) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
		if err := dec.Decode(dst); err != nil {
			return shared.NewValidationError("body", "must be a valid JSON object")
		}
		return nil
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return shared.NewValidationError("body", "could not be parsed")
	}
	fromForm(r.PostFormValue)
	return nil
}

func requestID(r *http.Request) string {
	return chimw.GetReqID(r.Context())
}
