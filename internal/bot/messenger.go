// Package bot routes inbound messenger updates through commands, the
// guided task dialogue, the voice pipeline and the AI fallback, and
// formats every user-visible reply.
package bot

import (
	"context"
	"time"
)

// Button is one inline keyboard button carrying a callback payload.
type Button struct {
	Text    string
	Payload string
}

// Keyboard is an inline keyboard attached to an outgoing message.
type Keyboard struct {
	Rows [][]Button
}

// Btn builds a callback button.
func Btn(text, payload string) Button {
	return Button{Text: text, Payload: payload}
}

// Row groups buttons into one keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// NewKeyboard builds a keyboard from rows.
func NewKeyboard(rows ...[]Button) *Keyboard {
	return &Keyboard{Rows: rows}
}

// Messenger is the outbound side of the chat platform. Implemented by the
// maxbot adapter; faked in tests.
type Messenger interface {
	// SendText delivers a plain markdown message.
	SendText(ctx context.Context, userID int64, text string) error
	// SendMessage delivers a markdown message with an inline keyboard.
	SendMessage(ctx context.Context, userID int64, text string, kb *Keyboard) error
	// AnswerCallback acknowledges a button press with a toast notification.
	AnswerCallback(ctx context.Context, callbackID, notification string) error
	// AnswerCallbackMessage acknowledges a button press by replacing the
	// message (with optional keyboard).
	AnswerCallbackMessage(ctx context.Context, callbackID string, text string, kb *Keyboard) error
}

// Message is an inbound text or voice message, already converted from the
// platform update format.
type Message struct {
	UserID    int64
	Text      string
	AudioURL  string // attachment download URL, empty when no audio
	CreatedAt time.Time
}

// CallbackQuery is an inbound button press.
type CallbackQuery struct {
	ID      string
	UserID  int64
	Payload string
}
