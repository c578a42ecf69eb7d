package services

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// SessionStore keeps one UploadFlow per browser session. Entries live only in memory
// and expire after a period of inactivity.
type SessionStore struct {
	cache   *cache.Cache
	newFlow func() *UploadFlow
	mu      sync.Mutex
}

// NewSessionStore creates a store whose entries expire ttl after their last use
func NewSessionStore(ttl time.Duration, newFlow func() *UploadFlow) *SessionStore {
	return &SessionStore{
		cache:   cache.New(ttl, ttl*2),
		newFlow: newFlow,
	}
}

// Get returns the flow for a session, creating an empty one on first use
func (s *SessionStore) Get(sessionID string) *UploadFlow {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, found := s.cache.Get(sessionID); found {
		flow := cached.(*UploadFlow)
		// touching the entry extends its lifetime
		s.cache.SetDefault(sessionID, flow)
		return flow
	}

	flow := s.newFlow()
	s.cache.SetDefault(sessionID, flow)
	return flow
}

// Peek returns the flow for a session without creating or touching it
func (s *SessionStore) Peek(sessionID string) (*UploadFlow, bool) {
	cached, found := s.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	return cached.(*UploadFlow), true
}

// Delete drops a session
func (s *SessionStore) Delete(sessionID string) {
	s.cache.Delete(sessionID)
}

// Count returns the number of sessions held, including expired ones not yet evicted
func (s *SessionStore) Count() int {
	return s.cache.ItemCount()
}
