package session

import (
	"sync"

	"github.com/benvon/smartmatch/internal/models"
)

// PreferenceStore is the process-local home of hydrated preferences, keyed by user. Several
// sessions of one user share an entry; it lives until the last of them releases it.
type PreferenceStore struct {
	mu      sync.RWMutex
	prefs   map[string]*models.Preferences
	holders map[string]int
}

// NewPreferenceStore creates an empty store
func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{
		prefs:   make(map[string]*models.Preferences),
		holders: make(map[string]int),
	}
}

// Acquire records one more session hydrating or hydrated for userID
func (s *PreferenceStore) Acquire(userID string) {
	if userID == "" {
		return
	}
	s.mu.Lock()
	s.holders[userID]++
	s.mu.Unlock()
}

// Release drops one session's hold on userID. When the last hold goes, the user's
// preferences are deleted and Release reports true.
func (s *PreferenceStore) Release(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holders[userID] > 1 {
		s.holders[userID]--
		return false
	}
	delete(s.holders, userID)
	delete(s.prefs, userID)
	return true
}

// Holders returns how many sessions currently hold userID
func (s *PreferenceStore) Holders(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holders[userID]
}

// Replace swaps in new preferences for a user some session holds. Users nobody holds are
// left alone so they load fresh on their next login. Reports whether it stored p.
func (s *PreferenceStore) Replace(p *models.Preferences) bool {
	if p == nil || p.UserID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holders[p.UserID] == 0 {
		return false
	}
	s.prefs[p.UserID] = p.Clone()
	return true
}

// Put stores a copy of p under p.UserID
func (s *PreferenceStore) Put(p *models.Preferences) {
	if p == nil || p.UserID == "" {
		return
	}
	s.mu.Lock()
	s.prefs[p.UserID] = p.Clone()
	s.mu.Unlock()
}

// Preferences returns a copy of the user's preferences
func (s *PreferenceStore) Preferences(userID string) (*models.Preferences, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[userID]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Delete forgets the user's preferences
func (s *PreferenceStore) Delete(userID string) {
	s.mu.Lock()
	delete(s.prefs, userID)
	s.mu.Unlock()
}

// Len returns the number of hydrated users
func (s *PreferenceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prefs)
}
