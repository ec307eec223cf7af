package cognito

import (
	"crypto/rsa"
	"sort"
	"sync"
)

// KeyCache holds resolved signing keys by kid. Entries are never replaced or evicted.
// It is safe for concurrent use.
type KeyCache struct {
	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey
}

// NewKeyCache creates an empty key cache
func NewKeyCache() *KeyCache {
	return &KeyCache{
		keys: make(map[string]*rsa.PublicKey),
	}
}

// Get returns the cached key for kid
func (c *KeyCache) Get(kid string) (*rsa.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.keys[kid]
	return key, ok
}

// Add stores key under kid unless an entry already exists, and returns the stored key.
// Racing resolvers for the same kid therefore all end up using one key.
func (c *KeyCache) Add(kid string, key *rsa.PublicKey) *rsa.PublicKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.keys[kid]; ok {
		return existing
	}
	c.keys[kid] = key
	return key
}

// Len returns the number of cached keys
func (c *KeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// KeyIDs returns the cached kids in sorted order
func (c *KeyCache) KeyIDs() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.keys))
	for kid := range c.keys {
		ids = append(ids, kid)
	}
	c.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
