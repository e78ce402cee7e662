package player

import (
	"errors"
	"strconv"
	"time"
)

var ErrNotFound = errors.New("player not found")

// Player is a playback endpoint registered for a user.
type Player struct {
	ID                 int64
	Name               string
	Type               string
	Username           string
	ClientID           string
	IPAddress          string
	DynamicIP          bool
	AutoControlEnabled bool
	M3UBOMEnabled      bool
	LastSeen           *time.Time
	TranscodeScheme    TranscodeScheme
	Technology         Technology
}

// Description is the display label: the name (or "Player <id>") followed by
// the last known address.
func (p Player) Description() string {
	label := p.Name
	if label == "" {
		label = "Player " + strconv.FormatInt(p.ID, 10)
	}
	if p.IPAddress != "" {
		label += " [" + p.IPAddress + "]"
	}
	return label
}

// VisibleTo keeps the players an account may see: every player for admins,
// otherwise only the ones it owns.
func VisibleTo(username string, admin bool, players []Player) []Player {
	visible := make([]Player, 0, len(players))
	for _, p := range players {
		if admin || p.Username == username {
			visible = append(visible, p)
		}
	}
	return visible
}

// CanManage reports whether the account may edit, clone or delete p.
func CanManage(username string, admin bool, p Player) bool {
	return admin || p.Username == username
}
