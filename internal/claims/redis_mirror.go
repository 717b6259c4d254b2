package claims

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/roles"
	"github.com/redis/go-redis/v9"
)

// RedisMirror implements Mirror with JSON snapshots under
// "<prefix><sub>". Entries carry a TTL so a missed invalidation can only go
// stale for a bounded window.
type RedisMirror struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisMirror creates a Redis-backed claims mirror. Prefix may be empty;
// ttl <= 0 falls back to one hour.
func NewRedisMirror(client *redis.Client, prefix string, ttl time.Duration) *RedisMirror {
	if prefix == "" {
		prefix = "claims:"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisMirror{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisMirror) key(sub string) string { return r.prefix + sub }

func (r *RedisMirror) Set(ctx context.Context, c roles.Claims) error {
	m := Mirrored{
		Sub:               c.Sub,
		Role:              string(c.Role),
		SupporterRole:     string(c.SupporterRole),
		OwnedSupporterIDs: c.OwnedSupporterIDs,
		MirroredAt:        time.Now().UTC(),
	}
	b, err := json.Marshal(&m)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(c.Sub), b, r.ttl).Err()
}

func (r *RedisMirror) Get(ctx context.Context, sub string) (*Mirrored, error) {
	b, err := r.client.Get(ctx, r.key(sub)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var m Mirrored
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *RedisMirror) Invalidate(ctx context.Context, sub string) error {
	return r.client.Del(ctx, r.key(sub)).Err()
}
