// Package session keeps per-conversation chat history. Stores are injected
// into the orchestrator rather than held as process globals, so tests and
// alternative front ends can supply their own.
package session

import (
	"sync"
	"time"

	"github.com/Yates-Labs/ragchat/internal/chat"
)

// DefaultID is the session used by the terminal front end.
const DefaultID = "terminal_session"

// Store maps session identifiers to ordered message histories.
// Implementations must be safe for concurrent use.
type Store interface {
	// GetOrCreate returns a snapshot of the session, creating it if needed.
	GetOrCreate(id string) Session

	// History returns a copy of the session's messages, oldest first.
	// Unknown sessions have an empty history.
	History(id string) []chat.Message

	// Append adds messages to the end of the session's history, creating
	// the session if needed. The messages are added atomically.
	Append(id string, msgs ...chat.Message)

	// Lock serializes turns within one session and returns the unlock func.
	Lock(id string) (unlock func())

	// Clear drops the session's history.
	Clear(id string)
}

// Session is a point-in-time copy of one conversation.
type Session struct {
	ID      string
	History []chat.Message
}

type session struct {
	turn      sync.Mutex
	messages  []chat.Message
	createdAt time.Time
	updatedAt time.Time
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*session)}
}

func (s *MemoryStore) get(id string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[id]; ok {
		return sess
	}
	now := time.Now()
	sess = &session{createdAt: now, updatedAt: now}
	s.sessions[id] = sess
	return sess
}

func (s *MemoryStore) GetOrCreate(id string) Session {
	s.get(id)
	return Session{ID: id, History: s.History(id)}
}

func (s *MemoryStore) History(id string) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	out := make([]chat.Message, len(sess.messages))
	copy(out, sess.messages)
	return out
}

func (s *MemoryStore) Append(id string, msgs ...chat.Message) {
	if len(msgs) == 0 {
		return
	}
	sess := s.get(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.messages = append(sess.messages, msgs...)
	sess.updatedAt = time.Now()
}

func (s *MemoryStore) Lock(id string) func() {
	sess := s.get(id)
	sess.turn.Lock()
	return sess.turn.Unlock
}

func (s *MemoryStore) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.messages = nil
		sess.updatedAt = time.Now()
	}
}

// Info summarizes one session.
type Info struct {
	ID        string
	Messages  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sessions lists known sessions.
func (s *MemoryStore) Sessions() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Info, 0, len(s.sessions))
	for id, sess := range s.sessions {
		out = append(out, Info{
			ID:        id,
			Messages:  len(sess.messages),
			CreatedAt: sess.createdAt,
			UpdatedAt: sess.updatedAt,
		})
	}
	return out
}
