package settings

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/libresonic/playersettings/internal/events"
	"github.com/libresonic/playersettings/internal/flash"
	"github.com/libresonic/playersettings/internal/player"
	"github.com/libresonic/playersettings/internal/transcoding"
	"github.com/libresonic/playersettings/internal/user"
)

type PlayerService interface {
	GetByID(ctx context.Context, id int64) (*player.Player, error)
	List(ctx context.Context) ([]player.Player, error)
	Remove(ctx context.Context, id int64) error
	Clone(ctx context.Context, id int64) (int64, error)
	Update(ctx context.Context, p *player.Player, transcodingIDs []int) error
	Register(ctx context.Context, reg player.Registration) (*player.Player, bool, error)
	Describe(p player.Player) string
}

type SecurityService interface {
	CurrentUser(r *http.Request) (*user.User, error)
}

type TranscodingService interface {
	All(ctx context.Context) ([]transcoding.Transcoding, error)
	ForPlayer(ctx context.Context, playerID int64) ([]transcoding.Transcoding, error)
	IsDownsamplingSupported() bool
	TranscodeDirectory() (string, error)
}

type FlashStore interface {
	Add(w http.ResponseWriter, r *http.Request, keys ...string) error
	Pop(w http.ResponseWriter, r *http.Request) flash.Flags
}

type Handler struct {
	players      PlayerService
	security     SecurityService
	transcodings TranscodingService
	flashes      FlashStore
	events       events.Publisher
}

func NewHandler(players PlayerService, security SecurityService, transcodings TranscodingService) *Handler {
	return &Handler{
		players:      players,
		security:     security,
		transcodings: transcodings,
		events:       events.Nop{},
	}
}

func (h *Handler) SetFlashStore(f FlashStore) {
	h.flashes = f
}

func (h *Handler) SetPublisher(p events.Publisher) {
	h.events = p
}

// requestError carries the HTTP status a failure maps to.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(msg string) error { return &requestError{status: http.StatusBadRequest, message: msg} }
func forbidden(msg string) error  { return &requestError{status: http.StatusForbidden, message: msg} }
func notFound(msg string) error   { return &requestError{status: http.StatusNotFound, message: msg} }
func unauthorized(msg string) error {
	return &requestError{status: http.StatusUnauthorized, message: msg}
}

func statusOf(err error) (int, string) {
	var re *requestError
	if errors.As(err, &re) {
		return re.status, re.message
	}
	return http.StatusInternalServerError, "internal error"
}

func (h *Handler) currentUser(r *http.Request) (*user.User, error) {
	u, err := h.security.CurrentUser(r)
	if err != nil {
		if errors.Is(err, user.ErrNotAuthenticated) {
			return nil, unauthorized("authentication required")
		}
		return nil, err
	}
	return u, nil
}

func parsePlayerID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid player id")
	}
	return id, nil
}

// managedPlayer loads a player the user is allowed to change.
func (h *Handler) managedPlayer(ctx context.Context, u *user.User, id int64) (*player.Player, error) {
	p, err := h.players.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, player.ErrNotFound) {
			return nil, notFound("player not found")
		}
		return nil, err
	}
	if !player.CanManage(u.Username, u.AdminRole, *p) {
		return nil, forbidden("not allowed to manage this player")
	}
	return p, nil
}

// removePlayer deletes a player the user may manage.
func (h *Handler) removePlayer(ctx context.Context, u *user.User, id int64) error {
	if _, err := h.managedPlayer(ctx, u, id); err != nil {
		return err
	}
	if err := h.players.Remove(ctx, id); err != nil {
		if errors.Is(err, player.ErrNotFound) {
			return notFound("player not found")
		}
		return err
	}
	slog.Info("player: removed", "player_id", id, "by", u.Username)
	h.events.PlayerRemoved(ctx, id)
	return nil
}

// clonePlayer duplicates a player the user may manage.
func (h *Handler) clonePlayer(ctx context.Context, u *user.User, id int64) (int64, error) {
	if _, err := h.managedPlayer(ctx, u, id); err != nil {
		return 0, err
	}
	cloneID, err := h.players.Clone(ctx, id)
	if err != nil {
		if errors.Is(err, player.ErrNotFound) {
			return 0, notFound("player not found")
		}
		return 0, err
	}
	slog.Info("player: cloned", "player_id", id, "clone_id", cloneID, "by", u.Username)
	h.events.PlayerCloned(ctx, id, cloneID)
	return cloneID, nil
}
