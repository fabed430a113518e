package reminder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/task"
)

type fakeSource struct {
	users map[int64][]task.Task
	err   error
}

func (f *fakeSource) ActiveUsers(context.Context) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	var ids []int64
	for id := range f.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeSource) ListActive(_ context.Context, userID int64) ([]task.Task, error) {
	return f.users[userID], nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts map[int64]string
	err   error
}

func (f *fakeNotifier) SendText(_ context.Context, userID int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.texts == nil {
		f.texts = make(map[int64]string)
	}
	f.texts[userID] = text
	return nil
}

func deadlineAt(t time.Time) *time.Time { return &t }

func TestRunNowSendsDigestOnlyForOverdue(t *testing.T) {
	past := time.Now().UTC().Add(-2 * time.Hour)
	future := time.Now().UTC().Add(48 * time.Hour)

	source := &fakeSource{users: map[int64][]task.Task{
		1: {
			{Title: "Сдать отчет", Deadline: deadlineAt(past)},
			{Title: "Не горит", Deadline: deadlineAt(future)},
		},
		2: {
			{Title: "Без дедлайна"},
		},
	}}
	notifier := &fakeNotifier{}

	s := NewScheduler(source, notifier, DefaultConfig())
	delivered, err := s.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}

	if delivered != 1 {
		t.Errorf("delivered = %d, want 1", delivered)
	}
	text, ok := notifier.texts[1]
	if !ok {
		t.Fatal("user 1 got no digest")
	}
	if !strings.Contains(text, "Сдать отчет") {
		t.Errorf("digest missing overdue task: %q", text)
	}
	if strings.Contains(text, "Не горит") {
		t.Errorf("digest contains non-overdue task: %q", text)
	}
	if _, ok := notifier.texts[2]; ok {
		t.Error("user 2 without overdue tasks got a digest")
	}
}

func TestRunNowSurvivesDeliveryFailure(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	source := &fakeSource{users: map[int64][]task.Task{
		1: {{Title: "x", Deadline: deadlineAt(past)}},
	}}
	notifier := &fakeNotifier{err: errors.New("network down")}

	s := NewScheduler(source, notifier, DefaultConfig())
	delivered, err := s.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}
	if delivered != 0 {
		t.Errorf("delivered = %d, want 0", delivered)
	}
}

func TestStartDisabledIsNoOp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	s := NewScheduler(&fakeSource{}, &fakeNotifier{}, cfg)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Stop()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Schedule = "not a cron spec"

	s := NewScheduler(&fakeSource{}, &fakeNotifier{}, cfg)
	if err := s.Start(context.Background()); err == nil {
		t.Error("Start() error = nil, want schedule parse failure")
	}
}
