package service

import (
	"sync"
	"time"

	"core/internal/model"
)

// SessionStore keeps per-user conversation history in memory so follow-up
// queries can be classified with context. Entries expire after ttl and the
// store holds at most maxSessions users.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*session
	ttl         time.Duration
	maxSessions int
	maxTurns    int
}

type session struct {
	turns    []model.ChatMessage
	lastSeen time.Time
}

// NewSessionStore creates a session store. Zero values fall back to one hour
// ttl, 1000 sessions and 20 turns per session.
func NewSessionStore(ttl time.Duration, maxSessions, maxTurns int) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxSessions <= 0 {
		maxSessions = 1000
	}
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &SessionStore{
		sessions:    make(map[string]*session),
		ttl:         ttl,
		maxSessions: maxSessions,
		maxTurns:    maxTurns,
	}
}

// History returns a copy of the user's recent turns, empty when the session
// is missing or expired.
func (s *SessionStore) History(userID string) []model.ChatMessage {
	if userID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	if time.Since(sess.lastSeen) > s.ttl {
		delete(s.sessions, userID)
		return nil
	}

	out := make([]model.ChatMessage, len(sess.turns))
	copy(out, sess.turns)
	return out
}

// Append records a turn for the user, evicting the oldest turns past the
// per-session cap and the stalest session past the store cap.
func (s *SessionStore) Append(userID string, turns ...model.ChatMessage) {
	if userID == "" || len(turns) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		if len(s.sessions) >= s.maxSessions {
			s.evictStalest()
		}
		sess = &session{}
		s.sessions[userID] = sess
	}

	sess.turns = append(sess.turns, turns...)
	if len(sess.turns) > s.maxTurns {
		sess.turns = sess.turns[len(sess.turns)-s.maxTurns:]
	}
	sess.lastSeen = time.Now()
}

// Clear drops the user's session.
func (s *SessionStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// evictStalest removes the least recently used session. Caller holds the
// lock.
func (s *SessionStore) evictStalest() {
	var oldestID string
	var oldest time.Time
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastSeen.Before(oldest) {
			oldestID = id
			oldest = sess.lastSeen
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}
