package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Presence is the Redis-backed presence registry.
// Keys: user:<userId> -> connId (the binding), conn:<connId> -> userId (the
// reverse index used on disconnect).
type Presence struct {
	client *redis.Client
}

func NewPresence(client *redis.Client) *Presence {
	return &Presence{client: client}
}

// unbindScript deletes the binding only while it still points at the
// disconnecting connection, atomically. A plain GET-then-DEL would let a
// stale disconnect erase the binding a reconnect just wrote.
var unbindScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("DEL", KEYS[1])
	return 1
end
return 0
`)

// Bind overwrites any existing binding for the user (last-write-wins).
func (p *Presence) Bind(ctx context.Context, userID, connID string) error {
	pipe := p.client.Pipeline()
	pipe.Set(ctx, userKey(userID), connID, 0)
	pipe.Set(ctx, connKey(connID), userID, 0)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *Presence) Lookup(ctx context.Context, userID string) (string, bool, error) {
	connID, err := p.client.Get(ctx, userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return connID, true, nil
}

func (p *Presence) ReverseLookup(ctx context.Context, connID string) (string, bool, error) {
	userID, err := p.client.Get(ctx, connKey(connID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

// Unbind removes the binding only if it still belongs to connID
// (compare-and-delete) and reports whether it did. The reverse entry for
// connID is removed unconditionally; it is dead either way.
func (p *Presence) Unbind(ctx context.Context, userID, connID string) (bool, error) {
	removed, err := unbindScript.Run(ctx, p.client, []string{userKey(userID)}, connID).Int()
	if err != nil {
		return false, err
	}
	if err := p.client.Del(ctx, connKey(connID)).Err(); err != nil {
		return false, err
	}
	return removed == 1, nil
}

func userKey(userID string) string {
	return "user:" + userID
}

func connKey(connID string) string {
	return "conn:" + connID
}
