package chat

import "sync"

// Presence is the single source of truth for "is this user currently
// reachable". One entry per user; a reconnect overwrites the prior handle
// (last writer wins). Entries are not persisted across restarts.
//
// Mutations are atomic with respect to concurrent lookups: a reader observes
// either the old or the new mapping, never a partial write. A lookup that
// races a disconnect may still return a stale handle; senders must treat a
// failed enqueue as the offline case.
type Presence struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewPresence() *Presence {
	return &Presence{clients: make(map[string]*Client)}
}

// Register maps userID to c, unconditionally replacing any prior handle.
func (p *Presence) Register(userID string, c *Client) {
	p.mu.Lock()
	p.clients[userID] = c
	p.mu.Unlock()
}

// Unregister removes the mapping for userID if present; no-op otherwise.
func (p *Presence) Unregister(userID string) {
	p.mu.Lock()
	delete(p.clients, userID)
	p.mu.Unlock()
}

// Release removes the mapping only while owner still holds it, so a
// disconnecting connection cannot evict the newer connection that replaced
// it.
func (p *Presence) Release(userID string, owner *Client) {
	p.mu.Lock()
	if p.clients[userID] == owner {
		delete(p.clients, userID)
	}
	p.mu.Unlock()
}

// Lookup returns the connection handle for userID, if any. O(1), never
// blocks on I/O.
func (p *Presence) Lookup(userID string) (*Client, bool) {
	p.mu.RLock()
	c, ok := p.clients[userID]
	p.mu.RUnlock()
	return c, ok
}

// Online reports whether userID currently has a registered connection.
func (p *Presence) Online(userID string) bool {
	_, ok := p.Lookup(userID)
	return ok
}

// Count returns the number of registered connections.
func (p *Presence) Count() int {
	p.mu.RLock()
	n := len(p.clients)
	p.mu.RUnlock()
	return n
}
