package maxbot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/bot"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/logging"
)

const (
	longPollTimeout = 30 // seconds
	errorBackoff    = 5 * time.Second
)

// Handler consumes converted inbound events. Implemented by bot.Router.
type Handler interface {
	HandleMessage(ctx context.Context, msg bot.Message)
	HandleCallback(ctx context.Context, cb bot.CallbackQuery)
}

// Poller long-polls the API and dispatches updates. Events for different
// users run concurrently; events for one user run in arrival order.
type Poller struct {
	client  *Client
	handler Handler
	log     *slog.Logger

	// Updates older than startTime are leftovers from before the last
	// restart and are dropped.
	startTime time.Time

	dispatch *userDispatcher
}

// NewPoller creates a poller. startTime is the bot start instant used for
// stale-update filtering.
func NewPoller(client *Client, handler Handler, startTime time.Time) *Poller {
	return &Poller{
		client:    client,
		handler:   handler,
		log:       logging.WithComponent("poller"),
		startTime: startTime,
		dispatch:  newUserDispatcher(),
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	var marker int64

	p.log.Info("long polling started", slog.Time("start_time", p.startTime))

	for {
		updates, next, err := p.client.GetUpdates(ctx, marker, longPollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				p.dispatch.wait()
				return ctx.Err()
			}
			p.log.Error("failed to get updates", slog.Any("error", err))
			select {
			case <-time.After(errorBackoff):
			case <-ctx.Done():
				p.dispatch.wait()
				return ctx.Err()
			}
			continue
		}
		marker = next

		for _, u := range updates {
			p.dispatchUpdate(ctx, u)
		}
	}
}

func (p *Poller) dispatchUpdate(ctx context.Context, u Update) {
	if p.stale(u.Timestamp) {
		p.log.Debug("stale update dropped", slog.String("type", u.UpdateType))
		return
	}

	switch u.UpdateType {
	case "message_created":
		if u.Message == nil {
			return
		}
		msg := convertMessage(u.Message)
		p.dispatch.enqueue(msg.UserID, func() {
			p.handler.HandleMessage(ctx, msg)
		})

	case "message_callback":
		if u.Callback == nil {
			return
		}
		cb := bot.CallbackQuery{
			ID:      u.Callback.CallbackID,
			UserID:  u.Callback.User.UserID,
			Payload: u.Callback.Payload,
		}
		p.dispatch.enqueue(cb.UserID, func() {
			p.handler.HandleCallback(ctx, cb)
		})

	default:
		p.log.Debug("ignored update", slog.String("type", u.UpdateType))
	}
}

func (p *Poller) stale(timestampMillis int64) bool {
	if timestampMillis == 0 {
		return false
	}
	return time.UnixMilli(timestampMillis).Before(p.startTime)
}

func convertMessage(m *InboundMessage) bot.Message {
	msg := bot.Message{
		UserID:    m.Sender.UserID,
		Text:      m.Body.Text,
		CreatedAt: time.UnixMilli(m.Timestamp),
	}
	for _, att := range m.Body.Attachments {
		if att.Type == "audio" && att.Payload.URL != "" {
			msg.AudioURL = att.Payload.URL
			break
		}
	}
	return msg
}

// userDispatcher serializes events per user while letting different
// users proceed concurrently.
type userDispatcher struct {
	mu     sync.Mutex
	queues map[int64][]func()
	wg     sync.WaitGroup
}

func newUserDispatcher() *userDispatcher {
	return &userDispatcher{queues: make(map[int64][]func())}
}

// enqueue appends fn to the user's queue, starting a drain goroutine if
// the queue was idle.
func (d *userDispatcher) enqueue(userID int64, fn func()) {
	d.mu.Lock()
	queue, active := d.queues[userID]
	d.queues[userID] = append(queue, fn)
	if !active {
		d.wg.Add(1)
		go d.drain(userID)
	}
	d.mu.Unlock()
}

func (d *userDispatcher) drain(userID int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		queue := d.queues[userID]
		if len(queue) == 0 {
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		fn := queue[0]
		d.queues[userID] = queue[1:]
		d.mu.Unlock()

		fn()
	}
}

// wait blocks until all in-flight events finish.
func (d *userDispatcher) wait() {
	d.wg.Wait()
}
