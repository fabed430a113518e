// Package reminder delivers a scheduled digest of overdue tasks to every
// user that has pending work.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/logging"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/task"
)

// DefaultSchedule fires the digest every morning at 09:00.
const DefaultSchedule = "0 9 * * *"

// TaskSource lists users and their pending tasks.
type TaskSource interface {
	ActiveUsers(ctx context.Context) ([]int64, error)
	ListActive(ctx context.Context, userID int64) ([]task.Task, error)
}

// Notifier delivers the digest message to a user.
type Notifier interface {
	SendText(ctx context.Context, userID int64, text string) error
}

// Config controls the digest scheduler.
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone"`
}

// DefaultConfig enables the morning digest in UTC.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Schedule: DefaultSchedule,
		Timezone: "UTC",
	}
}

// Scheduler runs the overdue digest on a cron schedule.
type Scheduler struct {
	tasks    TaskSource
	notifier Notifier
	config   Config
	cron     *cron.Cron
	log      *slog.Logger

	mu      sync.Mutex
	running bool
	entryID cron.EntryID

	now func() time.Time
}

// NewScheduler creates a digest scheduler.
func NewScheduler(tasks TaskSource, notifier Notifier, config Config) *Scheduler {
	log := logging.WithComponent("reminder")

	if config.Schedule == "" {
		config.Schedule = DefaultSchedule
	}

	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		log.Warn("invalid timezone, using UTC",
			slog.String("timezone", config.Timezone),
			slog.Any("error", err))
		loc = time.UTC
	}

	return &Scheduler{
		tasks:    tasks,
		notifier: notifier,
		config:   config,
		cron:     cron.New(cron.WithLocation(loc)),
		log:      log,
		now:      time.Now,
	}
}

// Start begins the scheduler. Disabled config makes it a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if !s.config.Enabled {
		s.log.Info("reminder scheduler disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runDigest(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule digest: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.running = true

	s.log.Info("reminder scheduler started",
		slog.String("schedule", s.config.Schedule),
		slog.Time("next_run", s.cron.Entry(s.entryID).Next))

	return nil
}

// Stop stops the scheduler and waits for a running digest to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.log.Info("reminder scheduler stopped")
}

// RunNow triggers an immediate digest run. Returns the number of users
// that received a message.
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	return s.deliverDigests(ctx)
}

func (s *Scheduler) runDigest(ctx context.Context) {
	delivered, err := s.deliverDigests(ctx)
	if err != nil {
		s.log.Error("digest run failed", slog.Any("error", err))
		return
	}
	s.log.Info("digest run finished", slog.Int("delivered", delivered))
}

// deliverDigests sends one message per user with overdue tasks. A delivery
// failure for one user does not stop the rest.
func (s *Scheduler) deliverDigests(ctx context.Context) (int, error) {
	users, err := s.tasks.ActiveUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	delivered := 0
	for _, userID := range users {
		active, err := s.tasks.ListActive(ctx, userID)
		if err != nil {
			s.log.Error("failed to list tasks for digest",
				slog.Int64("user_id", userID),
				slog.Any("error", err))
			continue
		}

		overdue := filterOverdue(active, s.now())
		if len(overdue) == 0 {
			continue
		}

		if err := s.notifier.SendText(ctx, userID, formatDigest(overdue)); err != nil {
			s.log.Error("failed to deliver digest",
				slog.Int64("user_id", userID),
				slog.Any("error", err))
			continue
		}
		delivered++
	}

	return delivered, nil
}

func filterOverdue(tasks []task.Task, now time.Time) []task.Task {
	var overdue []task.Task
	for _, t := range tasks {
		if t.Overdue(now) {
			overdue = append(overdue, t)
		}
	}
	return overdue
}

func formatDigest(overdue []task.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ **Просроченные задачи: %d**\n\n", len(overdue))

	for i, t := range overdue {
		fmt.Fprintf(&b, "%d. %s", i+1, t.Title)
		if t.Deadline != nil {
			fmt.Fprintf(&b, " (до %s)", t.Deadline.Format("02.01.2006"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nОтметьте выполненные или перенесите дедлайн: /tasks")
	return b.String()
}
