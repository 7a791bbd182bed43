package chat

import (
	"sync"
	"time"

	"github.com/jonathan/taskkit/internal/llm"
)

// MaxTurns is how many exchanges are kept per session.
const MaxTurns = 20

// DefaultIdleTTL is how long an untouched session survives.
const DefaultIdleTTL = 2 * time.Hour

type session struct {
	turns    []llm.Turn
	lastSeen time.Time
}

// HistoryStore keeps per-session conversation history in memory.
type HistoryStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	maxTurns int
	idleTTL  time.Duration
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewHistoryStore returns a store that drops sessions idle longer than idleTTL.
// A janitor runs every sweep interval when sweep > 0; call Stop to end it.
func NewHistoryStore(idleTTL, sweep time.Duration) *HistoryStore {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	s := &HistoryStore{
		sessions: make(map[string]*session),
		maxTurns: MaxTurns,
		idleTTL:  idleTTL,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if sweep > 0 {
		go s.janitor(sweep)
	} else {
		close(s.done)
	}
	return s
}

// Get returns a copy of the session's turns, oldest first.
func (s *HistoryStore) Get(id string) []llm.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	sess.lastSeen = s.now()
	return append([]llm.Turn(nil), sess.turns...)
}

// Append records a turn and returns the session length after trimming.
func (s *HistoryStore) Append(id string, turn llm.Turn) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	sess.turns = append(sess.turns, turn)
	if extra := len(sess.turns) - s.maxTurns; extra > 0 {
		sess.turns = append(sess.turns[:0:0], sess.turns[extra:]...)
	}
	sess.lastSeen = s.now()
	return len(sess.turns)
}

// Reset forgets a session.
func (s *HistoryStore) Reset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len reports the number of live sessions.
func (s *HistoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops idle sessions and returns how many were removed.
func (s *HistoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.idleTTL)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *HistoryStore) janitor(every time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}

// Stop ends the janitor and waits for it. Safe to call more than once.
func (s *HistoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}
