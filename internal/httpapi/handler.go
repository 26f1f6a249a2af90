package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dakshkumar96/Reclaim-sub000/internal/apierr"
	"github.com/dakshkumar96/Reclaim-sub000/internal/auth"
	"github.com/dakshkumar96/Reclaim-sub000/internal/backend"
	"github.com/dakshkumar96/Reclaim-sub000/internal/challenge"
	"github.com/dakshkumar96/Reclaim-sub000/internal/progression"
	"github.com/dakshkumar96/Reclaim-sub000/internal/session"
)

// RegisterRoutes mounts the progression API.
func RegisterRoutes(r chi.Router, sessions *session.Manager, client backend.Client, logger *slog.Logger) {
	h := &handler{sessions: sessions, client: client, logger: logger}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/progression/snapshot", h.getSnapshot)
		r.Post("/progression/actions", h.postAction)
		r.Get("/progression/notifications", h.listNotifications)
		r.Delete("/progression/notifications/{id}", h.dismissNotification)
		r.Post("/progression/refresh", h.refresh)
		r.Post("/session/logout", h.logout)
		r.Get("/challenges", h.listChallenges)
		r.Get("/badges", h.listBadges)
		r.Get("/leaderboard", h.listLeaderboard)
	})
}

type handler struct {
	sessions *session.Manager
	client   backend.Client
	logger   *slog.Logger
}

func (h *handler) engine(w http.ResponseWriter, r *http.Request) (*progression.Engine, string, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user.UserID == "" {
		writeError(w, r, "unauthorized", "authentication required")
		return nil, "", false
	}

	engine, err := h.sessions.Engine(r.Context(), user.UserID)
	if err != nil {
		h.logger.Error("session setup failed", slog.String("userId", user.UserID), slog.String("error", err.Error()))
		writeError(w, r, "bad_gateway", "could not load progression data")
		return nil, "", false
	}
	return engine, user.UserID, true
}

func (h *handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	engine, _, ok := h.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, engine.Snapshot())
}

func (h *handler) postAction(w http.ResponseWriter, r *http.Request) {
	engine, _, ok := h.engine(w, r)
	if !ok {
		return
	}

	var action progression.Action
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeError(w, r, "bad_request", "invalid request body")
		return
	}

	err := engine.Dispatch(r.Context(), action)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, engine.Snapshot())
	case errors.Is(err, challenge.ErrAlreadyCheckedIn):
		// Idempotent: the day's check-in is already satisfied.
		writeJSON(w, http.StatusOK, engine.Snapshot())
	case errors.Is(err, challenge.ErrAlreadyActive):
		writeError(w, r, "conflict", "challenge already started")
	case errors.Is(err, challenge.ErrNotActive):
		writeError(w, r, "conflict", "challenge is not active")
	case errors.Is(err, progression.ErrUnknownChallenge):
		writeError(w, r, "not_found", "challenge not found")
	case errors.Is(err, progression.ErrUnknownAction):
		writeError(w, r, "bad_request", "unsupported action type")
	default:
		h.logger.Error("dispatch failed", slog.String("error", err.Error()))
		writeError(w, r, "internal", "action failed")
	}
}

func (h *handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	engine, _, ok := h.engine(w, r)
	if !ok {
		return
	}
	queue := engine.Notifications()
	queue.Tick()
	writeJSON(w, http.StatusOK, map[string]any{"notifications": queue.List()})
}

func (h *handler) dismissNotification(w http.ResponseWriter, r *http.Request) {
	engine, _, ok := h.engine(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if !engine.Notifications().Remove(id) {
		writeError(w, r, "not_found", "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	engine, _, ok := h.engine(w, r)
	if !ok {
		return
	}
	if err := engine.Load(r.Context()); err != nil {
		h.logger.Error("profile refresh failed", slog.String("error", err.Error()))
		writeError(w, r, "bad_gateway", "could not refresh progression data")
		return
	}
	writeJSON(w, http.StatusOK, engine.Snapshot())
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user.UserID == "" {
		writeError(w, r, "unauthorized", "authentication required")
		return
	}
	h.sessions.End(user.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listChallenges(w http.ResponseWriter, r *http.Request) {
	engine, _, ok := h.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"challenges": engine.Challenges()})
}

func (h *handler) listBadges(w http.ResponseWriter, r *http.Request) {
	engine, _, ok := h.engine(w, r)
	if !ok {
		return
	}
	snap := engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"earned": snap.EarnedBadges})
}

func (h *handler) listLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.client.ListLeaderboard(r.Context())
	if err != nil {
		h.logger.Error("leaderboard fetch failed", slog.String("error", err.Error()))
		writeError(w, r, "bad_gateway", "could not load leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, code, message string) {
	writeJSON(w, apierr.ToStatusCode(code), apierr.ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
