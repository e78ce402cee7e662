package settings

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/libresonic/playersettings/internal/httputil"
	"github.com/libresonic/playersettings/internal/player"
)

type cloneResponse struct {
	ID int64 `json:"id"`
}

type registerResponse struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Created     bool   `json:"created"`
}

// Get returns the settings command as JSON. Unlike the HTML form it never
// deletes or clones; those have their own endpoints.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		h.apiError(w, err)
		return
	}
	var selected int64
	if raw := r.URL.Query().Get("id"); raw != "" {
		if selected, err = parsePlayerID(raw); err != nil {
			h.apiError(w, err)
			return
		}
	}
	cmd, err := h.buildCommand(r.Context(), u, selected)
	if err != nil {
		h.apiError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cmd)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		h.apiError(w, err)
		return
	}
	id, err := parsePlayerID(chi.URLParam(r, "id"))
	if err != nil {
		h.apiError(w, err)
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.PlayerID = id
	if err := h.applyUpdate(r.Context(), u, req); err != nil {
		h.apiError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		h.apiError(w, err)
		return
	}
	id, err := parsePlayerID(chi.URLParam(r, "id"))
	if err != nil {
		h.apiError(w, err)
		return
	}
	if err := h.removePlayer(r.Context(), u, id); err != nil {
		h.apiError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Clone(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		h.apiError(w, err)
		return
	}
	id, err := parsePlayerID(chi.URLParam(r, "id"))
	if err != nil {
		h.apiError(w, err)
		return
	}
	cloneID, err := h.clonePlayer(r.Context(), u, id)
	if err != nil {
		h.apiError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, cloneResponse{ID: cloneID})
}

// Register announces the calling client as a player of the current user.
// A client already known by its clientId is reused.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		h.apiError(w, err)
		return
	}
	p, created, err := h.players.Register(r.Context(), player.RegistrationFromRequest(r, u.Username))
	if err != nil {
		h.apiError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		slog.Info("player: registered", "player_id", p.ID, "username", u.Username, "type", p.Type)
	}
	httputil.WriteJSON(w, status, registerResponse{
		ID:          p.ID,
		Description: h.players.Describe(*p),
		Type:        p.Type,
		Created:     created,
	})
}

func (h *Handler) apiError(w http.ResponseWriter, err error) {
	status, msg := statusOf(err)
	if status == http.StatusInternalServerError {
		slog.Error("settings: request failed", "error", err)
	}
	httputil.WriteError(w, status, msg)
}
