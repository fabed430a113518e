// Package task defines the task domain model shared by the store, the
// dialogue handlers and the AI intent extraction.
package task

import "time"

// Priority levels recognized by the bot.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p string) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Task is a single task row as persisted by the store.
type Task struct {
	ID          string // UUID
	UserID      int64
	Title       string
	Description string
	Deadline    *time.Time // nil when no deadline is set
	Priority    string
	Completed   bool
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Overdue reports whether the task has a deadline in the past relative to now.
func (t *Task) Overdue(now time.Time) bool {
	return t.Deadline != nil && t.Deadline.Before(now)
}

// Stats aggregates a user's task activity over a trailing window.
type Stats struct {
	Total             int
	Completed         int
	Pending           int
	Overdue           int
	CompletedToday    int
	CompletedThisWeek int
	ByPriority        PriorityCounts
}

// PriorityCounts breaks active tasks down by priority level.
type PriorityCounts struct {
	High   int
	Medium int
	Low    int
}

// Intent is the structured interpretation of one free-text (or transcribed)
// message: either a task-creation request with extracted fields, or not.
// Produced by a single model call and either persisted or discarded.
type Intent struct {
	IsTaskCreation bool   `json:"isTaskCreation"`
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	Priority       string `json:"priority,omitempty"`
	Deadline       string `json:"deadline,omitempty"` // free text, resolved later
}

// NormalizedPriority returns the intent's priority, falling back to medium
// when the model produced an unknown or empty value.
func (i *Intent) NormalizedPriority() string {
	if ValidPriority(i.Priority) {
		return i.Priority
	}
	return PriorityMedium
}
