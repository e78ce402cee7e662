package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel connected web players listen on to
// reload their settings.
const Channel = "player-settings"

const (
	TypePlayerUpdated = "player.updated"
	TypePlayerRemoved = "player.removed"
	TypePlayerCloned  = "player.cloned"
)

type Event struct {
	Type     string    `json:"type"`
	PlayerID int64     `json:"playerId"`
	SourceID int64     `json:"sourceId,omitempty"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	PlayerUpdated(ctx context.Context, playerID int64)
	PlayerRemoved(ctx context.Context, playerID int64)
	PlayerCloned(ctx context.Context, sourceID, cloneID int64)
}

// RedisPublisher broadcasts player setting changes. Publishing is best
// effort: failures are logged and never surface to the caller.
type RedisPublisher struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, now: time.Now}
}

func (p *RedisPublisher) PlayerUpdated(ctx context.Context, playerID int64) {
	p.publish(ctx, Event{Type: TypePlayerUpdated, PlayerID: playerID})
}

func (p *RedisPublisher) PlayerRemoved(ctx context.Context, playerID int64) {
	p.publish(ctx, Event{Type: TypePlayerRemoved, PlayerID: playerID})
}

func (p *RedisPublisher) PlayerCloned(ctx context.Context, sourceID, cloneID int64) {
	p.publish(ctx, Event{Type: TypePlayerCloned, PlayerID: cloneID, SourceID: sourceID})
}

func (p *RedisPublisher) publish(ctx context.Context, ev Event) {
	ev.At = p.now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("events: failed to encode event", "type", ev.Type, "error", err)
		return
	}
	if err := p.rdb.Publish(ctx, Channel, data).Err(); err != nil {
		slog.Warn("events: publish failed", "type", ev.Type, "player_id", ev.PlayerID, "error", err)
	}
}

// Nop discards every event; used when no Redis is configured.
type Nop struct{}

func (Nop) PlayerUpdated(context.Context, int64)       {}
func (Nop) PlayerRemoved(context.Context, int64)       {}
func (Nop) PlayerCloned(context.Context, int64, int64) {}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
