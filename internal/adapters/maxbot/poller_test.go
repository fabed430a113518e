package maxbot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/bot"
)

type recordingHandler struct {
	mu        sync.Mutex
	messages  []bot.Message
	callbacks []bot.CallbackQuery
}

func (h *recordingHandler) HandleMessage(_ context.Context, msg bot.Message) {
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	h.mu.Unlock()
}

func (h *recordingHandler) HandleCallback(_ context.Context, cb bot.CallbackQuery) {
	h.mu.Lock()
	h.callbacks = append(h.callbacks, cb)
	h.mu.Unlock()
}

func (h *recordingHandler) snapshot() ([]bot.Message, []bot.CallbackQuery) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bot.Message(nil), h.messages...), append([]bot.CallbackQuery(nil), h.callbacks...)
}

func messageUpdate(userID int64, text string, ts time.Time) Update {
	return Update{
		UpdateType: "message_created",
		Timestamp:  ts.UnixMilli(),
		Message: &InboundMessage{
			Sender:    User{UserID: userID},
			Timestamp: ts.UnixMilli(),
			Body:      MessageBody{MID: "m", Text: text},
		},
	}
}

func TestDispatchConvertsMessageAndCallback(t *testing.T) {
	handler := &recordingHandler{}
	start := time.Now().Add(-time.Minute)
	p := NewPoller(NewClient("http://unused", "t"), handler, start)

	now := time.Now()
	voice := messageUpdate(42, "", now)
	voice.Message.Body.Attachments = []Attachment{
		{Type: "image", Payload: AttachmentPayload{URL: "http://files/pic.png"}},
		{Type: "audio", Payload: AttachmentPayload{URL: "http://files/voice.ogg"}},
	}

	p.dispatchUpdate(context.Background(), messageUpdate(42, "привет", now))
	p.dispatchUpdate(context.Background(), voice)
	p.dispatchUpdate(context.Background(), Update{
		UpdateType: "message_callback",
		Timestamp:  now.UnixMilli(),
		Callback:   &Callback{CallbackID: "cb-1", Payload: "tasks:list", User: User{UserID: 42}},
	})
	p.dispatch.wait()

	messages, callbacks := handler.snapshot()
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if messages[0].UserID != 42 || messages[0].Text != "привет" {
		t.Errorf("first message = %+v", messages[0])
	}
	if messages[1].AudioURL != "http://files/voice.ogg" {
		t.Errorf("audio url = %q, want the audio attachment", messages[1].AudioURL)
	}
	if len(callbacks) != 1 || callbacks[0].ID != "cb-1" || callbacks[0].Payload != "tasks:list" {
		t.Errorf("callbacks = %+v", callbacks)
	}
}

func TestDispatchDropsStaleUpdates(t *testing.T) {
	handler := &recordingHandler{}
	start := time.Now()
	p := NewPoller(NewClient("http://unused", "t"), handler, start)

	p.dispatchUpdate(context.Background(), messageUpdate(1, "старое", start.Add(-time.Hour)))
	p.dispatchUpdate(context.Background(), messageUpdate(1, "свежее", start.Add(time.Second)))
	p.dispatch.wait()

	messages, _ := handler.snapshot()
	if len(messages) != 1 || messages[0].Text != "свежее" {
		t.Errorf("messages = %+v, want only the fresh one", messages)
	}
}

func TestDispatchIgnoresUnknownUpdateType(t *testing.T) {
	handler := &recordingHandler{}
	p := NewPoller(NewClient("http://unused", "t"), handler, time.Now().Add(-time.Minute))

	p.dispatchUpdate(context.Background(), Update{
		UpdateType: "bot_started",
		Timestamp:  time.Now().UnixMilli(),
	})
	p.dispatch.wait()

	messages, callbacks := handler.snapshot()
	if len(messages) != 0 || len(callbacks) != 0 {
		t.Errorf("unknown update dispatched: %v %v", messages, callbacks)
	}
}

// Events for one user must run in arrival order even though the
// dispatcher uses goroutines.
func TestUserDispatcherPreservesPerUserOrder(t *testing.T) {
	d := newUserDispatcher()

	var mu sync.Mutex
	perUser := make(map[int64][]int)

	for i := 0; i < 50; i++ {
		i := i
		for _, userID := range []int64{1, 2, 3} {
			userID := userID
			d.enqueue(userID, func() {
				mu.Lock()
				perUser[userID] = append(perUser[userID], i)
				mu.Unlock()
			})
		}
	}
	d.wait()

	for userID, seen := range perUser {
		if len(seen) != 50 {
			t.Fatalf("user %d got %d events, want 50", userID, len(seen))
		}
		for i, v := range seen {
			if v != i {
				t.Fatalf("user %d events out of order: %v", userID, seen)
			}
		}
	}
}

func TestUserDispatcherRunsUsersConcurrently(t *testing.T) {
	d := newUserDispatcher()

	release := make(chan struct{})
	fastDone := make(chan struct{})

	d.enqueue(1, func() { <-release })
	d.enqueue(2, func() { close(fastDone) })

	select {
	case <-fastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("user 2 blocked behind user 1")
	}
	close(release)
	d.wait()
}
