// Package session holds per-user ephemeral dialogue state for the guided
// task-creation flow. Sessions live in memory only and are wiped on restart.
package session

import (
	"log/slog"
	"sync"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/logging"
)

// Step names the current prompt of the guided dialogue.
type Step string

const (
	StepTitle       Step = "title"
	StepDescription Step = "description"
	StepPriority    Step = "priority"
	StepDeadline    Step = "deadline"
	StepHours       Step = "deadline_hours"
	StepDate        Step = "deadline_date"
)

// Draft accumulates task fields across dialogue steps. Title is the only
// mandatory field; the rest stay empty when skipped.
type Draft struct {
	Title       string
	Description string
	Priority    string
}

// Session is one user's in-progress guided dialogue.
type Session struct {
	Step  Step
	Draft Draft
}

// Store keeps one session per user. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	log      *slog.Logger
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		log:      logging.WithComponent("session"),
	}
}

// Get returns the user's session, or nil if none is active.
func (s *Store) Get(userID int64) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[userID]
}

// Has reports whether the user has an active session.
func (s *Store) Has(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[userID]
	return ok
}

// Set stores or replaces the user's session.
func (s *Store) Set(userID int64, sess *Session) {
	s.mu.Lock()
	s.sessions[userID] = sess
	s.mu.Unlock()
	s.log.Debug("session updated",
		slog.Int64("user_id", userID),
		slog.String("step", string(sess.Step)))
}

// Delete removes the user's session if present.
func (s *Store) Delete(userID int64) {
	s.mu.Lock()
	_, existed := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()
	if existed {
		s.log.Debug("session deleted", slog.Int64("user_id", userID))
	}
}

// Clear drops all sessions. Called on startup so a restart never leaves
// users stuck mid-dialogue with stale prompts.
func (s *Store) Clear() {
	s.mu.Lock()
	count := len(s.sessions)
	s.sessions = make(map[int64]*Session)
	s.mu.Unlock()
	if count > 0 {
		s.log.Info("sessions cleared", slog.Int("count", count))
	}
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
