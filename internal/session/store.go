// Package session holds the server-side credential store. The browser only
// ever sees a signed session ID; the Salesforce tokens it points to stay in
// this process and expire with the session TTL.
package session

import (
	"time"

	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

const cleanupInterval = 5 * time.Minute

// Store is an in-memory session-ID to credential map with TTL eviction.
type Store struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewStore creates a store whose entries expire after ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		cache: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

// Create stores the credential under a fresh random session ID.
func (s *Store) Create(cred salesforce.Credential) string {
	id := uuid.NewString()
	s.cache.Set(id, cred, s.ttl)
	return id
}

// Get returns the credential for a session ID.
func (s *Store) Get(id string) (salesforce.Credential, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return salesforce.Credential{}, false
	}
	cred, ok := v.(salesforce.Credential)
	return cred, ok
}

// Replace swaps the credential stored under an existing session ID, resetting
// its TTL. Used after a token refresh.
func (s *Store) Replace(id string, cred salesforce.Credential) {
	s.cache.Set(id, cred, s.ttl)
}

// Delete removes a session. Logging out twice is fine.
func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
