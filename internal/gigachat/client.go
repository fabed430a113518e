// Package gigachat implements the GigaChat chat-completion client and the
// task-intent extraction built on top of it.
package gigachat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/logging"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/sberauth"
)

// DefaultChatURL is the production chat-completions endpoint.
const DefaultChatURL = "https://gigachat.devices.sberbank.ru/api/v1/chat/completions"

// defaultModel is used when the caller does not pick one.
const defaultModel = "GigaChat"

// ErrService marks chat-completion failures (transport, non-2xx, malformed
// response). Callers map it to a localized apology, never show it raw.
var ErrService = errors.New("gigachat request failed")

// Message is one turn of a chat-completion conversation.
type Message struct {
	Role    string `json:"role"` // system, user or assistant
	Content string `json:"content"`
}

// ChatOptions tune a single completion request. Zero values select defaults.
type ChatOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Client is a token-gated GigaChat API client.
type Client struct {
	chatURL    string
	tokens     *sberauth.TokenSource
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a GigaChat client. chatURL may be empty to use the
// production endpoint. insecure matches the token source TLS setting.
func NewClient(chatURL string, tokens *sberauth.TokenSource, insecure bool) *Client {
	if chatURL == "" {
		chatURL = DefaultChatURL
	}

	transport := http.DefaultTransport
	if insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		chatURL: chatURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
		log: logging.WithComponent("gigachat"),
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	N           int       `json:"n"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Chat sends one completion request and returns the reply text.
func (c *Client) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		N:           1,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal request: %v", ErrService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrService, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrService, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrService, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("chat completion failed",
			slog.Int("status", resp.StatusCode),
			slog.String("body", truncate(string(respBody), 200)))
		return "", fmt.Errorf("%w: status %d", ErrService, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", ErrService, err)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices in response", ErrService)
	}

	return parsed.Choices[0].Message.Content, nil
}

// SimpleChat sends a single user message, optionally preceded by a system
// prompt, and returns the reply text.
func (c *Client) SimpleChat(ctx context.Context, userMessage, systemPrompt string) (string, error) {
	var messages []Message
	if systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: userMessage})

	return c.Chat(ctx, messages, ChatOptions{})
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
