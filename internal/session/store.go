package session

import (
	"sync"
	"time"
)

// Store maps user identifiers to sessions. Sessions are created lazily on
// first contact and retained for the process lifetime. Mutation of a single
// user's history is serialized by that session's lock; different users are
// fully independent.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*state
	cap      int // max retained turns per session; <= 0 keeps everything
	now      func() time.Time
}

type state struct {
	mu    sync.Mutex
	turns []Turn
}

// NewStore returns a Store keeping at most capTurns turns per user.
func NewStore(capTurns int) *Store {
	return &Store{
		sessions: make(map[string]*state),
		cap:      capTurns,
		now:      time.Now,
	}
}

func (s *Store) getOrCreate(userID string) *state {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[userID]
	if !ok {
		st = &state{}
		s.sessions[userID] = st
	}
	return st
}

// AppendTurn records a completed turn for the user, evicting the oldest
// turns beyond the configured cap. The turn is stamped with the store clock
// when At is zero and deep-copied so the caller cannot mutate history.
func (s *Store) AppendTurn(userID string, t Turn) {
	st := s.getOrCreate(userID)
	if t.At.IsZero() {
		t.At = s.now().UTC()
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.turns = append(st.turns, cloneTurn(t))
	if s.cap > 0 && len(st.turns) > s.cap {
		// Drop in place; the slice never grows past cap+1.
		copy(st.turns, st.turns[len(st.turns)-s.cap:])
		st.turns = st.turns[:s.cap]
	}
}

// History returns the user's turns oldest-first, bounded to the store cap.
// The returned slice is a deep copy.
func (s *Store) History(userID string) []Turn {
	st := s.getOrCreate(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.turns) == 0 {
		return nil
	}
	out := make([]Turn, len(st.turns))
	for i, t := range st.turns {
		out[i] = cloneTurn(t)
	}
	return out
}

// Len reports the number of retained turns for the user.
func (s *Store) Len(userID string) int {
	st := s.getOrCreate(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.turns)
}
