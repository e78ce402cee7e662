package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/libresonic/playersettings/internal/database"
	"github.com/libresonic/playersettings/internal/transcoding"
)

// Locator resolves a player's IP address to an ISO country code.
type Locator interface {
	Country(ip string) string
}

type Service struct {
	db      database.DBTX
	locator Locator
}

func NewService(db database.DBTX) *Service {
	return &Service{db: db}
}

func (s *Service) SetLocator(l Locator) {
	s.locator = l
}

const playerColumns = `id, name, type, username, client_id, ip_address, dynamic_ip,
	auto_control_enabled, m3u_bom_enabled, last_seen, transcode_scheme, technology`

func scanPlayer(row pgx.Row) (Player, error) {
	var p Player
	var name, typ, username, clientID, ip *string
	var scheme, technology string
	err := row.Scan(&p.ID, &name, &typ, &username, &clientID, &ip, &p.DynamicIP,
		&p.AutoControlEnabled, &p.M3UBOMEnabled, &p.LastSeen, &scheme, &technology)
	if err != nil {
		return Player{}, err
	}
	p.Name = deref(name)
	p.Type = deref(typ)
	p.Username = deref(username)
	p.ClientID = deref(clientID)
	p.IPAddress = deref(ip)
	p.TranscodeScheme = TranscodeScheme(scheme)
	p.Technology = Technology(technology)
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Player, error) {
	p, err := scanPlayer(s.db.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query player %d: %w", id, err)
	}
	return &p, nil
}

func (s *Service) List(ctx context.Context) ([]Player, error) {
	rows, err := s.db.Query(ctx, `SELECT `+playerColumns+` FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	players := make([]Player, 0)
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return players, nil
}

// Remove deletes the player; its transcoding links go with it.
func (s *Service) Remove(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete player %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Clone copies the player under a new id, suffixing the name with
// " (copy)", and copies its active transcodings.
func (s *Service) Clone(ctx context.Context, id int64) (int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin clone: %w", err)
	}
	defer tx.Rollback(ctx)

	var cloneID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO players (name, type, username, client_id, ip_address, dynamic_ip,
			auto_control_enabled, m3u_bom_enabled, last_seen, transcode_scheme, technology)
		 SELECT CASE WHEN name IS NULL THEN NULL ELSE name || ' (copy)' END, type, username, client_id,
			ip_address, dynamic_ip, auto_control_enabled, m3u_bom_enabled, last_seen, transcode_scheme, technology
		 FROM players WHERE id = $1
		 RETURNING id`, id,
	).Scan(&cloneID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("clone player %d: %w", id, err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO player_transcodings (player_id, transcoding_id)
		 SELECT $1, transcoding_id FROM player_transcodings WHERE player_id = $2`,
		cloneID, id,
	); err != nil {
		return 0, fmt.Errorf("copy transcodings to player %d: %w", cloneID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit clone: %w", err)
	}
	return cloneID, nil
}

// Update persists the user-editable settings of p and replaces its active
// transcodings in one transaction. Ownership, address and last-seen columns
// are left untouched.
func (s *Service) Update(ctx context.Context, p *Player, transcodingIDs []int) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE players SET name = $2, dynamic_ip = $3, auto_control_enabled = $4,
			m3u_bom_enabled = $5, transcode_scheme = $6, technology = $7
		 WHERE id = $1`,
		p.ID, nullIfEmpty(p.Name), p.DynamicIP, p.AutoControlEnabled,
		p.M3UBOMEnabled, string(p.TranscodeScheme), string(p.Technology),
	)
	if err != nil {
		return fmt.Errorf("update player %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := transcoding.ReplaceForPlayer(ctx, tx, p.ID, transcodingIDs); err != nil {
		return fmt.Errorf("update player %d: %w", p.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

// Touch records that the player was seen from ip. The stored address only
// changes for players with a dynamic IP.
func (s *Service) Touch(ctx context.Context, id int64, ip string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE players SET last_seen = now(),
			ip_address = CASE WHEN dynamic_ip THEN $2 ELSE ip_address END
		 WHERE id = $1`, id, nullIfEmpty(ip))
	if err != nil {
		return fmt.Errorf("touch player %d: %w", id, err)
	}
	return nil
}

// Describe is Description plus the country of the player's address when a
// locator is configured.
func (s *Service) Describe(p Player) string {
	desc := p.Description()
	if s.locator == nil || p.IPAddress == "" {
		return desc
	}
	if country := s.locator.Country(p.IPAddress); country != "" {
		desc += " " + country
	}
	return desc
}

func (s *Service) logTouchFailure(id int64, err error) {
	slog.Warn("player: failed to update last seen", "player_id", id, "error", err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
