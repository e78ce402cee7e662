package settings

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/libresonic/playersettings/internal/flash"
	"github.com/libresonic/playersettings/internal/httputil"
	"github.com/libresonic/playersettings/internal/validate"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/player_settings.html"))

type pageData struct {
	Nonce   string
	Command *Command
	Limits  map[string]int
	Reload  bool
	Toast   bool
}

// Display renders the settings form. A delete or clone parameter is
// handled before the form is populated; delete wins when both are given.
func (h *Handler) Display(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.currentUser(r)
	if err != nil {
		h.pageError(w, err)
		return
	}

	q := r.URL.Query()
	if (q.Has("delete") || q.Has("clone")) && crossSiteRequest(r) {
		h.pageError(w, forbidden("cross-site player changes are not allowed"))
		return
	}
	switch {
	case q.Has("delete"):
		id, err := parsePlayerID(q.Get("delete"))
		if err == nil {
			err = h.removePlayer(ctx, u, id)
		}
		if err != nil {
			h.pageError(w, err)
			return
		}
	case q.Has("clone"):
		id, err := parsePlayerID(q.Get("clone"))
		if err == nil {
			_, err = h.clonePlayer(ctx, u, id)
		}
		if err != nil {
			h.pageError(w, err)
			return
		}
	}

	var selected int64
	if q.Has("id") {
		if selected, err = parsePlayerID(q.Get("id")); err != nil {
			h.pageError(w, err)
			return
		}
	}

	cmd, err := h.buildCommand(ctx, u, selected)
	if err != nil {
		h.pageError(w, err)
		return
	}

	data := pageData{
		Nonce:   httputil.NonceFromContext(ctx),
		Command: cmd,
		Limits:  validate.FieldLimits(),
	}
	if h.flashes != nil {
		flags := h.flashes.Pop(w, r)
		data.Reload = flags[flash.SettingsReload]
		data.Toast = flags[flash.SettingsToast]
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, data); err != nil {
		slog.Error("settings: render page", "error", err)
	}
}

// Submit binds the posted form, saves it and redirects back to the form
// for the same player.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		h.pageError(w, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	req, err := bindForm(r.PostForm)
	if err != nil {
		h.pageError(w, err)
		return
	}
	if err := h.applyUpdate(r.Context(), u, req); err != nil {
		h.pageError(w, err)
		return
	}

	if h.flashes != nil {
		if err := h.flashes.Add(w, r, flash.SettingsReload, flash.SettingsToast); err != nil {
			slog.Error("settings: save flash", "error", err)
		}
	}
	http.Redirect(w, r, "/playerSettings?id="+strconv.FormatInt(req.PlayerID, 10), http.StatusSeeOther)
}

// crossSiteRequest reports whether the browser says the request was started
// by another site. Without fetch metadata the Referer host is compared.
func crossSiteRequest(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "cross-site", "same-site":
		return true
	case "same-origin", "none":
		return false
	}
	ref := r.Header.Get("Referer")
	if ref == "" {
		return false
	}
	u, err := url.Parse(ref)
	return err != nil || u.Host != r.Host
}

func (h *Handler) pageError(w http.ResponseWriter, err error) {
	status, msg := statusOf(err)
	if status == http.StatusInternalServerError {
		slog.Error("settings: request failed", "error", err)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("Location", "/login")
		w.WriteHeader(http.StatusSeeOther)
		return
	}
	http.Error(w, msg, status)
}
