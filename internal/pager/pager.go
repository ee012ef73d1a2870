// Package pager keeps the per-user id snapshot behind the "my requests"
// slider. Navigation indexes are only valid against the snapshot taken at
// listing time; the snapshot is never refreshed mid-session.
package pager

import "sync"

type Store struct {
	mu    sync.Mutex
	pages map[int64][]int64
}

func NewStore() *Store {
	return &Store{pages: map[int64][]int64{}}
}

// Snapshot replaces the user's id sequence with a fresh listing.
func (s *Store) Snapshot(userID int64, ids []int64) {
	cp := make([]int64, len(ids))
	copy(cp, ids)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[userID] = cp
}

// Get returns the user's snapshot, or false if none was taken.
func (s *Store) Get(userID int64) ([]int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.pages[userID]
	if !ok {
		return nil, false
	}
	cp := make([]int64, len(ids))
	copy(cp, ids)
	return cp, true
}

// IndexOf finds a request id within the user's snapshot.
func (s *Store) IndexOf(userID, requestID int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range s.pages[userID] {
		if id == requestID {
			return i, true
		}
	}
	return 0, false
}
