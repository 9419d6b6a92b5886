package noise

import "sync"

// StaticKeyCache is the process-local, best-effort mapping from a peer's
// identity to its Noise static public key, populated on any successful
// handshake completion and consulted by the initiator's pattern selector
// to attempt IK. It is an injected collaborator rather than a package
// singleton: a Transport owns one, constructed in New and overridable
// for tests.
//
// There is no TTL and no size bound — a bounded cache (e.g. an LRU)
// could silently evict a still-valid entry and degrade a future IK
// attempt back to a full XX exchange with no way for a caller to notice;
// see DESIGN.md.
type StaticKeyCache struct {
	mu      sync.RWMutex
	entries map[PeerID][32]byte
}

// NewStaticKeyCache returns an empty cache.
func NewStaticKeyCache() *StaticKeyCache {
	return &StaticKeyCache{entries: make(map[PeerID][32]byte)}
}

// Get returns the cached Noise static public key for id, if any.
func (c *StaticKeyCache) Get(id PeerID) ([32]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.entries[id]
	return key, ok
}

// Put records id's Noise static public key, overwriting any prior entry.
func (c *StaticKeyCache) Put(id PeerID, staticPub [32]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = staticPub
}

// Reset clears every entry.
func (c *StaticKeyCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[PeerID][32]byte)
}

// Len reports the number of cached entries, for tests and diagnostics.
func (c *StaticKeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
