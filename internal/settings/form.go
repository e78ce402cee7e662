package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/libresonic/playersettings/internal/player"
	"github.com/libresonic/playersettings/internal/transcoding"
	"github.com/libresonic/playersettings/internal/user"
	"github.com/libresonic/playersettings/internal/validate"
)

// updateRequest holds the editable part of the command.
type updateRequest struct {
	PlayerID             int64  `json:"-"`
	Name                 string `json:"name"`
	DynamicIP            bool   `json:"dynamicIp"`
	AutoControlEnabled   bool   `json:"autoControlEnabled"`
	M3UBOMEnabled        bool   `json:"m3uBomEnabled"`
	TranscodeSchemeName  string `json:"transcodeSchemeName"`
	TechnologyName       string `json:"technologyName"`
	ActiveTranscodingIDs []int  `json:"activeTranscodingIds"`
}

// bindForm reads the submitted settings form. Unchecked checkboxes are
// absent from the body and bind to false.
func bindForm(form url.Values) (updateRequest, error) {
	id, err := parsePlayerID(form.Get("playerId"))
	if err != nil {
		return updateRequest{}, err
	}
	req := updateRequest{
		PlayerID:            id,
		Name:                form.Get("name"),
		DynamicIP:           checked(form.Get("dynamicIp")),
		AutoControlEnabled:  checked(form.Get("autoControlEnabled")),
		M3UBOMEnabled:       checked(form.Get("m3uBomEnabled")),
		TranscodeSchemeName: form.Get("transcodeSchemeName"),
		TechnologyName:      form.Get("technologyName"),
	}
	for _, raw := range form["activeTranscodingIds"] {
		tid, err := strconv.Atoi(raw)
		if err != nil {
			return updateRequest{}, badRequest(fmt.Sprintf("invalid transcoding id %q", raw))
		}
		req.ActiveTranscodingIDs = append(req.ActiveTranscodingIDs, tid)
	}
	return req, nil
}

func checked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// applyUpdate writes the edited fields back to the player and replaces its
// active transcodings. Every other player field is left untouched.
func (h *Handler) applyUpdate(ctx context.Context, u *user.User, req updateRequest) error {
	scheme, err := player.ParseTranscodeScheme(req.TranscodeSchemeName)
	if err != nil {
		return badRequest(err.Error())
	}
	tech, err := player.ParseTechnology(req.TechnologyName)
	if err != nil {
		return badRequest(err.Error())
	}
	name := strings.TrimSpace(req.Name)
	if msg := validate.PlayerName(name); msg != "" {
		return badRequest(msg)
	}

	p, err := h.managedPlayer(ctx, u, req.PlayerID)
	if err != nil {
		return err
	}
	if err := h.checkTranscodings(ctx, req.ActiveTranscodingIDs); err != nil {
		return err
	}

	p.AutoControlEnabled = req.AutoControlEnabled
	p.M3UBOMEnabled = req.M3UBOMEnabled
	p.DynamicIP = req.DynamicIP
	p.Name = name
	p.TranscodeScheme = scheme
	p.Technology = tech

	if err := h.players.Update(ctx, p, req.ActiveTranscodingIDs); err != nil {
		switch {
		case errors.Is(err, player.ErrNotFound):
			return notFound("player not found")
		case errors.Is(err, transcoding.ErrUnknownTranscoding):
			return badRequest("unknown transcoding")
		}
		return fmt.Errorf("update player: %w", err)
	}

	slog.Info("settings: player updated", "player_id", p.ID, "by", u.Username)
	h.events.PlayerUpdated(ctx, p.ID)
	return nil
}

// checkTranscodings rejects unknown ids before anything is written.
func (h *Handler) checkTranscodings(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	all, err := h.transcodings.All(ctx)
	if err != nil {
		return fmt.Errorf("list transcodings: %w", err)
	}
	known := make(map[int]bool, len(all))
	for _, t := range all {
		known[t.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return badRequest(fmt.Sprintf("unknown transcoding %d", id))
		}
	}
	return nil
}
