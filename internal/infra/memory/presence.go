package memory

import (
	"context"
	"sync"
)

// Presence is the in-memory twin of the Redis presence registry. Bind is
// last-write-wins, Unbind is compare-and-delete.
type Presence struct {
	mu     sync.RWMutex
	byUser map[string]string // userID -> connID
	byConn map[string]string // connID -> userID
}

func NewPresence() *Presence {
	return &Presence{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

func (p *Presence) Bind(_ context.Context, userID, connID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUser[userID] = connID
	p.byConn[connID] = userID
	return nil
}

func (p *Presence) Lookup(_ context.Context, userID string) (string, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	connID, ok := p.byUser[userID]
	return connID, ok, nil
}

func (p *Presence) ReverseLookup(_ context.Context, connID string) (string, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	userID, ok := p.byConn[connID]
	return userID, ok, nil
}

func (p *Presence) Unbind(_ context.Context, userID, connID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// The reverse entry belongs to the closing connection either way.
	delete(p.byConn, connID)
	if p.byUser[userID] != connID {
		return false, nil
	}
	delete(p.byUser, userID)
	return true, nil
}
