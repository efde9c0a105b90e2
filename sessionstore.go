package lexful

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexful/lexful/lexv2"
)

// Turn is one exchange recorded on a locally driven session.
type Turn struct {
	Input      string          `json:"input"`
	Response   json.RawMessage `json:"response"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

// SessionStore keeps conversation state for locally driven sessions, such
// as dev console connections, between turns. It is safe for concurrent
// use and every read returns a defensive copy.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	state lexv2.SessionState
	turns []Turn
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*session)}
}

// NewID returns a fresh session identifier.
func (s *SessionStore) NewID() string { return uuid.NewString() }

// State returns the stored session state, or false for unknown ids.
func (s *SessionStore) State(id string) (lexv2.SessionState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return lexv2.SessionState{}, false
	}
	return sess.state.Clone(), true
}

// SetState stores the session state, creating the session if needed.
func (s *SessionStore) SetState(id string, state lexv2.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	sess.state = state.Clone()
}

// AppendTurn records one exchange on the session, creating it if needed.
func (s *SessionStore) AppendTurn(id string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	turn.Response = append(json.RawMessage(nil), turn.Response...)
	sess.turns = append(sess.turns, turn)
}

// Turns returns a copy of the session's recorded history.
func (s *SessionStore) Turns(id string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	out := make([]Turn, len(sess.turns))
	for i, t := range sess.turns {
		t.Response = append(json.RawMessage(nil), t.Response...)
		out[i] = t
	}
	return out
}

// Delete removes the session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len reports how many sessions are live.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
