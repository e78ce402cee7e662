package player

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/libresonic/playersettings/internal/httputil"
	"github.com/mssola/useragent"
)

// Registration describes a client announcing itself for a user.
type Registration struct {
	Username string
	// ClientID identifies a client install across address changes.
	ClientID string
	// ClientName is the explicit client name (the "c" parameter of
	// streaming clients); it wins over the user agent.
	ClientName string
	IPAddress  string
	UserAgent  string
}

func RegistrationFromRequest(r *http.Request, username string) Registration {
	q := r.URL.Query()
	return Registration{
		Username:   username,
		ClientID:   q.Get("clientId"),
		ClientName: q.Get("c"),
		IPAddress:  httputil.ClientIP(r),
		UserAgent:  r.UserAgent(),
	}
}

// ClientType derives the player type shown in the settings page.
func (reg Registration) ClientType() string {
	if reg.ClientName != "" {
		return reg.ClientName
	}
	if reg.UserAgent == "" {
		return ""
	}

	ua := useragent.New(reg.UserAgent)
	name, version := ua.Browser()
	if name == "" {
		return ""
	}
	typ := name
	if major, _, _ := strings.Cut(version, "."); major != "" {
		typ += " " + major
	}
	if os := ua.OS(); os != "" {
		typ += " (" + os + ")"
	}
	return typ
}

// Register returns the player already known for the user and client id,
// refreshing its address, or creates a new one with the default-active
// transcodings. created reports which happened.
func (s *Service) Register(ctx context.Context, reg Registration) (p *Player, created bool, err error) {
	if reg.ClientID != "" {
		existing, err := scanPlayer(s.db.QueryRow(ctx,
			`SELECT `+playerColumns+` FROM players WHERE username = $1 AND client_id = $2 ORDER BY id LIMIT 1`,
			reg.Username, reg.ClientID))
		switch {
		case err == nil:
			if err := s.Touch(ctx, existing.ID, reg.IPAddress); err != nil {
				s.logTouchFailure(existing.ID, err)
			} else if existing.DynamicIP {
				existing.IPAddress = reg.IPAddress
			}
			return &existing, false, nil
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, false, fmt.Errorf("query player for client %s: %w", reg.ClientID, err)
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin register: %w", err)
	}
	defer tx.Rollback(ctx)

	fresh, err := scanPlayer(tx.QueryRow(ctx,
		`INSERT INTO players (type, username, client_id, ip_address, last_seen)
		 VALUES ($1, $2, $3, $4, now())
		 RETURNING `+playerColumns,
		nullIfEmpty(reg.ClientType()), reg.Username, nullIfEmpty(reg.ClientID), nullIfEmpty(reg.IPAddress),
	))
	if err != nil {
		return nil, false, fmt.Errorf("insert player: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO player_transcodings (player_id, transcoding_id)
		 SELECT $1, id FROM transcodings WHERE default_active`, fresh.ID,
	); err != nil {
		return nil, false, fmt.Errorf("attach default transcodings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit register: %w", err)
	}
	return &fresh, true, nil
}
