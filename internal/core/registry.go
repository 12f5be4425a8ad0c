package core

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Registry holds the live conversations by session ID with TTL eviction,
// so abandoned sessions do not accumulate.  Persistence of transcripts is
// the repository's job; an evicted conversation simply reads as an unknown
// session.
type Registry struct {
	cache *cache.Cache
}

// NewRegistry creates a registry whose entries expire after ttl and are
// purged every ttl/4.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{cache: cache.New(ttl, ttl/4)}
}

// Save stores (or refreshes) a conversation under its session ID.
func (r *Registry) Save(sessionID string, conv *Conversation) {
	r.cache.Set(sessionID, conv, cache.DefaultExpiration)
}

// Get returns the live conversation for a session, if still resident.
func (r *Registry) Get(sessionID string) (*Conversation, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*Conversation), true
	}
	return nil, false
}

// Delete removes a conversation, e.g. when its session is closed.
func (r *Registry) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

// OnEvict registers a hook run when a conversation leaves the registry,
// whether expired or explicitly deleted.  The hook runs on the evicting
// goroutine, which for TTL expiry is the cache janitor.
func (r *Registry) OnEvict(fn func(sessionID string, conv *Conversation)) {
	r.cache.OnEvicted(func(key string, value interface{}) {
		if conv, ok := value.(*Conversation); ok {
			fn(key, conv)
		}
	})
}
