// Package focus runs per-user Pomodoro timers. One timer per user; the
// user is notified when the interval elapses.
package focus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/logging"
)

// DefaultDuration is the classic Pomodoro work interval.
const DefaultDuration = 25 * time.Minute

// Notifier delivers the time-is-up message to a user.
type Notifier interface {
	SendText(ctx context.Context, userID int64, text string) error
}

// Service tracks running focus timers. Safe for concurrent use.
type Service struct {
	notifier Notifier
	duration time.Duration
	doneText string
	log      *slog.Logger

	mu     sync.Mutex
	timers map[int64]*time.Timer
}

// NewService creates a timer service. duration <= 0 selects the default
// 25-minute interval.
func NewService(notifier Notifier, duration time.Duration, doneText string) *Service {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Service{
		notifier: notifier,
		duration: duration,
		doneText: doneText,
		log:      logging.WithComponent("focus"),
		timers:   make(map[int64]*time.Timer),
	}
}

// Duration returns the configured work interval.
func (s *Service) Duration() time.Duration {
	return s.duration
}

// Start begins a timer for the user. Returns false if one is already
// running; the existing timer is left untouched.
func (s *Service) Start(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.timers[userID]; running {
		return false
	}

	s.timers[userID] = time.AfterFunc(s.duration, func() {
		s.finish(userID)
	})

	s.log.Info("focus timer started",
		slog.Int64("user_id", userID),
		slog.Duration("duration", s.duration))
	return true
}

// Cancel stops the user's timer. Returns false when none is running.
func (s *Service) Cancel(userID int64) bool {
	s.mu.Lock()
	timer, running := s.timers[userID]
	if running {
		timer.Stop()
		delete(s.timers, userID)
	}
	s.mu.Unlock()

	if running {
		s.log.Info("focus timer cancelled", slog.Int64("user_id", userID))
	}
	return running
}

// Active reports whether the user has a running timer.
func (s *Service) Active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, running := s.timers[userID]
	return running
}

// Stop cancels all running timers. Called on shutdown.
func (s *Service) Stop() {
	s.mu.Lock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
}

func (s *Service) finish(userID int64) {
	s.mu.Lock()
	delete(s.timers, userID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.notifier.SendText(ctx, userID, s.doneText); err != nil {
		s.log.Error("failed to deliver focus notification",
			slog.Int64("user_id", userID),
			slog.Any("error", err))
	}
}
