// Package present is the HTTP surface over the session controller: a
// snapshot endpoint, start/stop/reset commands, a websocket stream of
// session updates, and permission remediation guidance.
package present

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/limnhq/limn/internal/profile"
	"github.com/limnhq/limn/internal/session"
)

// Handler serves the UI-facing API.
type Handler struct {
	ctrl     *session.Controller
	profiles *profile.Client
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the API handler. profiles may be nil when no
// profile backend is configured.
func NewHandler(ctrl *session.Controller, profiles *profile.Client, logger *slog.Logger) *Handler {
	return &Handler{
		ctrl:     ctrl,
		profiles: profiles,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Router wires all API routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Get("/session", h.getSession)
		api.Post("/session/start", h.startSession)
		api.Post("/session/stop", h.stopSession)
		api.Post("/session/reset", h.resetSession)
		api.Get("/session/stream", h.streamSession)
		api.Get("/session/remediation", h.remediation)

		api.Route("/profile", func(pr chi.Router) {
			pr.Get("/{userID}", h.getProfile)
			pr.Post("/{userID}", h.createProfile)
			pr.Patch("/{userID}", h.updateProfile)
			pr.Post("/{userID}/avatar", h.uploadAvatar)
		})
	})

	return r
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	// Start suspends only at the microphone permission request; every
	// failure lands in the snapshot rather than the response status.
	h.ctrl.Start(r.Context())
	respondJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (h *Handler) stopSession(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Stop()
	respondJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (h *Handler) resetSession(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Reset()
	respondJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// streamSession pushes a snapshot over a websocket on every session
// update, starting with the current state.
func (h *Handler) streamSession(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	updates, cancel := h.ctrl.Subscribe()
	defer cancel()

	// Drain inbound frames so pings and the close handshake are
	// processed; any read error tears the stream down.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(h.ctrl.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-clientGone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

type remediationResponse struct {
	Family Family   `json:"family"`
	Steps  []string `json:"steps"`
	Needed bool     `json:"needed"`
}

// remediation returns the permission recovery steps for the caller's
// agent family. Needed reflects whether the current session error is
// the one kind that warrants them.
func (h *Handler) remediation(w http.ResponseWriter, r *http.Request) {
	family := DetectFamily(r.Header.Get("User-Agent"))
	snap := h.ctrl.Snapshot()
	needed := snap.Error != nil && snap.Error.Kind.NeedsRemediation()

	respondJSON(w, http.StatusOK, remediationResponse{
		Family: family,
		Steps:  StepsFor(family),
		Needed: needed,
	})
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		respondError(w, http.StatusServiceUnavailable, "profile backend not configured")
		return
	}

	p, err := h.profiles.GetProfile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondBackendError(w, err)
		return
	}
	if p == nil {
		respondError(w, http.StatusNotFound, "profile not found")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) createProfile(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		respondError(w, http.StatusServiceUnavailable, "profile backend not configured")
		return
	}

	var seed profile.Seed
	if err := json.NewDecoder(r.Body).Decode(&seed); err != nil {
		respondError(w, http.StatusBadRequest, "invalid profile seed")
		return
	}

	p, err := h.profiles.CreateProfile(r.Context(), chi.URLParam(r, "userID"), seed)
	if err != nil {
		h.respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		respondError(w, http.StatusServiceUnavailable, "profile backend not configured")
		return
	}

	var patch profile.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid profile patch")
		return
	}

	p, err := h.profiles.UpdateProfile(r.Context(), chi.URLParam(r, "userID"), patch)
	if err != nil {
		h.respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		respondError(w, http.StatusServiceUnavailable, "profile backend not configured")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		respondError(w, http.StatusBadRequest, "avatar form file is required")
		return
	}
	defer file.Close()

	url, err := h.profiles.UploadAvatar(r.Context(), chi.URLParam(r, "userID"), header.Filename, file)
	if err != nil {
		h.respondBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) respondBackendError(w http.ResponseWriter, err error) {
	var backendErr *profile.BackendError
	if errors.As(err, &backendErr) {
		respondError(w, http.StatusBadGateway, backendErr.Message)
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
