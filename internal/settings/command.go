package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/libresonic/playersettings/internal/player"
	"github.com/libresonic/playersettings/internal/transcoding"
	"github.com/libresonic/playersettings/internal/user"
)

// Command backs the player settings form and the JSON settings resource.
type Command struct {
	PlayerID             int64                     `json:"playerId,omitempty"`
	Name                 string                    `json:"name"`
	Description          string                    `json:"description"`
	Type                 string                    `json:"type"`
	LastSeen             *time.Time                `json:"lastSeen,omitempty"`
	DynamicIP            bool                      `json:"dynamicIp"`
	AutoControlEnabled   bool                      `json:"autoControlEnabled"`
	M3UBOMEnabled        bool                      `json:"m3uBomEnabled"`
	TranscodeSchemeName  string                    `json:"transcodeSchemeName"`
	TechnologyName       string                    `json:"technologyName"`
	AllTranscodings      []transcoding.Transcoding `json:"allTranscodings"`
	ActiveTranscodingIDs []int                     `json:"activeTranscodingIds"`
	TranscodingSupported bool                      `json:"transcodingSupported"`
	TranscodeDirectory   string                    `json:"transcodeDirectory"`
	TranscodeSchemes     []player.TranscodeScheme  `json:"transcodeSchemes"`
	Technologies         []player.Technology       `json:"technologies"`
	Players              []PlayerEntry             `json:"players"`
	Admin                bool                      `json:"admin"`
}

// PlayerEntry is one row of the player picker.
type PlayerEntry struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Username    string `json:"username"`
}

// HasPlayer reports whether the command is bound to a player.
func (c *Command) HasPlayer() bool {
	return c.PlayerID != 0
}

// IsActive reports whether the transcoding is enabled for the player.
func (c *Command) IsActive(transcodingID int) bool {
	for _, id := range c.ActiveTranscodingIDs {
		if id == transcodingID {
			return true
		}
	}
	return false
}

// buildCommand loads everything the form shows. selected is the player
// requested through the id parameter, 0 for the first visible one.
func (h *Handler) buildCommand(ctx context.Context, u *user.User, selected int64) (*Command, error) {
	all, err := h.players.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	visible := player.VisibleTo(u.Username, u.AdminRole, all)

	cmd := &Command{
		Admin:                u.AdminRole,
		Players:              make([]PlayerEntry, 0, len(visible)),
		ActiveTranscodingIDs: []int{},
		TranscodeSchemes:     player.TranscodeSchemes(),
		Technologies:         player.Technologies(),
		TranscodingSupported: h.transcodings.IsDownsamplingSupported(),
	}
	for _, p := range visible {
		cmd.Players = append(cmd.Players, PlayerEntry{
			ID:          p.ID,
			Description: h.players.Describe(p),
			Username:    p.Username,
		})
	}

	if dir, err := h.transcodings.TranscodeDirectory(); err != nil {
		slog.Warn("settings: transcode directory unavailable", "error", err)
	} else {
		cmd.TranscodeDirectory = dir
	}

	cmd.AllTranscodings, err = h.transcodings.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transcodings: %w", err)
	}

	p, err := h.selectPlayer(ctx, u, visible, selected)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return cmd, nil
	}

	cmd.PlayerID = p.ID
	cmd.Name = p.Name
	cmd.Description = h.players.Describe(*p)
	cmd.Type = p.Type
	cmd.LastSeen = p.LastSeen
	cmd.DynamicIP = p.DynamicIP
	cmd.AutoControlEnabled = p.AutoControlEnabled
	cmd.M3UBOMEnabled = p.M3UBOMEnabled
	cmd.TranscodeSchemeName = string(p.TranscodeScheme)
	cmd.TechnologyName = string(p.Technology)

	active, err := h.transcodings.ForPlayer(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list player transcodings: %w", err)
	}
	for _, t := range active {
		cmd.ActiveTranscodingIDs = append(cmd.ActiveTranscodingIDs, t.ID)
	}
	return cmd, nil
}

// selectPlayer resolves the player the form edits. An id that no longer
// exists falls back to the first visible player.
func (h *Handler) selectPlayer(ctx context.Context, u *user.User, visible []player.Player, id int64) (*player.Player, error) {
	if id != 0 {
		p, err := h.managedPlayer(ctx, u, id)
		if err == nil {
			return p, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
		slog.Debug("settings: requested player missing", "player_id", id)
	}
	if len(visible) == 0 {
		return nil, nil
	}
	p := visible[0]
	return &p, nil
}

func isNotFound(err error) bool {
	var re *requestError
	return errors.As(err, &re) && re.status == http.StatusNotFound
}
