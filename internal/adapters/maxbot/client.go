// Package maxbot implements the MAX messenger Bot API: long-poll update
// transport and outbound messages with inline keyboards. It satisfies
// bot.Messenger.
package maxbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/bot"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/logging"
)

// DefaultAPIURL is the production MAX Bot API endpoint.
const DefaultAPIURL = "https://botapi.max.ru"

// Client is a MAX Bot API client.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a client. apiURL may be empty to use production.
func NewClient(apiURL, token string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL: apiURL,
		token:  token,
		httpClient: &http.Client{
			Timeout: 45 * time.Second, // must exceed the long-poll timeout
		},
		log: logging.WithComponent("maxbot"),
	}
}

// User identifies a MAX user.
type User struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name,omitempty"`
}

// AttachmentPayload carries attachment content references.
type AttachmentPayload struct {
	URL   string `json:"url,omitempty"`
	Token string `json:"token,omitempty"`
}

// Attachment is one inbound message attachment. Voice messages arrive
// with type "audio".
type Attachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

// MessageBody is the content of an inbound message.
type MessageBody struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// InboundMessage is a message delivered through an update.
type InboundMessage struct {
	Sender    User        `json:"sender"`
	Timestamp int64       `json:"timestamp"` // unix milliseconds
	Body      MessageBody `json:"body"`
}

// Callback is a button press delivered through an update.
type Callback struct {
	CallbackID string `json:"callback_id"`
	Payload    string `json:"payload"`
	User       User   `json:"user"`
}

// Update is one long-poll event.
type Update struct {
	UpdateType string          `json:"update_type"`
	Timestamp  int64           `json:"timestamp"` // unix milliseconds
	Message    *InboundMessage `json:"message,omitempty"`
	Callback   *Callback       `json:"callback,omitempty"`
}

type updatesResponse struct {
	Updates []Update `json:"updates"`
	Marker  *int64   `json:"marker"`
}

// GetUpdates long-polls for updates. marker is the resume position from
// the previous call (0 on first call); the returned marker is passed to
// the next call.
func (c *Client) GetUpdates(ctx context.Context, marker int64, timeoutSec int) ([]Update, int64, error) {
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("timeout", strconv.Itoa(timeoutSec))
	if marker > 0 {
		q.Set("marker", strconv.FormatInt(marker, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiURL+"/updates?"+q.Encode(), nil)
	if err != nil {
		return nil, marker, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, marker, fmt.Errorf("failed to get updates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, marker, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, marker, fmt.Errorf("updates endpoint returned status %d", resp.StatusCode)
	}

	var parsed updatesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, marker, fmt.Errorf("failed to parse updates: %w", err)
	}

	next := marker
	if parsed.Marker != nil {
		next = *parsed.Marker
	}
	return parsed.Updates, next, nil
}

// Outbound wire shapes.

type keyboardButton struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

type keyboardPayload struct {
	Buttons [][]keyboardButton `json:"buttons"`
}

type outboundAttachment struct {
	Type    string          `json:"type"`
	Payload keyboardPayload `json:"payload"`
}

type outboundMessage struct {
	Text        string               `json:"text"`
	Format      string               `json:"format"`
	Attachments []outboundAttachment `json:"attachments,omitempty"`
}

type callbackAnswer struct {
	Notification string           `json:"notification,omitempty"`
	Message      *outboundMessage `json:"message,omitempty"`
}

func encodeKeyboard(kb *bot.Keyboard) []outboundAttachment {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}

	buttons := make([][]keyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		encoded := make([]keyboardButton, 0, len(row))
		for _, b := range row {
			encoded = append(encoded, keyboardButton{
				Type:    "callback",
				Text:    b.Text,
				Payload: b.Payload,
			})
		}
		buttons = append(buttons, encoded)
	}

	return []outboundAttachment{{
		Type:    "inline_keyboard",
		Payload: keyboardPayload{Buttons: buttons},
	}}
}

// SendText delivers a plain markdown message.
func (c *Client) SendText(ctx context.Context, userID int64, text string) error {
	return c.SendMessage(ctx, userID, text, nil)
}

// SendMessage delivers a markdown message with an optional inline
// keyboard.
func (c *Client) SendMessage(ctx context.Context, userID int64, text string, kb *bot.Keyboard) error {
	msg := outboundMessage{
		Text:        text,
		Format:      "markdown",
		Attachments: encodeKeyboard(kb),
	}

	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("user_id", strconv.FormatInt(userID, 10))

	return c.post(ctx, "/messages?"+q.Encode(), msg)
}

// AnswerCallback acknowledges a button press with a toast notification.
// Empty notification still acknowledges the press.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, notification string) error {
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("callback_id", callbackID)

	return c.post(ctx, "/answers?"+q.Encode(), callbackAnswer{Notification: notification})
}

// AnswerCallbackMessage acknowledges a button press by replacing the
// source message.
func (c *Client) AnswerCallbackMessage(ctx context.Context, callbackID string, text string, kb *bot.Keyboard) error {
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("callback_id", callbackID)

	return c.post(ctx, "/answers?"+q.Encode(), callbackAnswer{
		Message: &outboundMessage{
			Text:        text,
			Format:      "markdown",
			Attachments: encodeKeyboard(kb),
		},
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("api call failed",
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(respBody)))
		return fmt.Errorf("api returned status %d", resp.StatusCode)
	}

	return nil
}
