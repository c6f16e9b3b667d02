package interview

import (
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	// Abandoned sessions expire without any compensating action; the
	// in-memory transcript is simply lost.
	defaultSessionTTL = 2 * time.Hour
	cleanupInterval   = 10 * time.Minute
)

// Registry holds the active sessions keyed by id. Finished or abandoned
// sessions are evicted after the TTL.
type Registry struct {
	cache *cache.Cache
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Registry{cache: cache.New(ttl, cleanupInterval)}
}

func (r *Registry) Put(s *Session) {
	r.cache.Set(s.ID(), s, cache.DefaultExpiration)
}

func (r *Registry) Get(id string) (*Session, bool) {
	if x, found := r.cache.Get(id); found {
		return x.(*Session), true
	}
	return nil, false
}

func (r *Registry) Delete(id string) {
	r.cache.Delete(id)
}
