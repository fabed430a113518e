// Package salutespeech implements speech recognition through the Sber
// SaluteSpeech REST API.
package salutespeech

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
	"strings"
	"time"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/logging"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/sberauth"
)

// DefaultRecognizeURL is the production recognition endpoint.
const DefaultRecognizeURL = "https://smartspeech.sber.ru/rest/v1/speech:recognize"

// pcmContentType describes the only audio format the client submits:
// raw PCM, 16 kHz sample rate, 16-bit samples, mono.
const pcmContentType = "audio/x-pcm;bit=16;rate=16000"

// ErrService marks recognition failures (transport, non-2xx, malformed
// response). Callers map it to a localized apology, never show it raw.
var ErrService = errors.New("salutespeech request failed")

// Client is a token-gated SaluteSpeech recognition client.
type Client struct {
	recognizeURL string
	tokens       *sberauth.TokenSource
	httpClient   *http.Client
	log          *slog.Logger
}

// NewClient creates a recognition client. recognizeURL may be empty to use
// the production endpoint. insecure matches the token source TLS setting.
func NewClient(recognizeURL string, tokens *sberauth.TokenSource, insecure bool) *Client {
	if recognizeURL == "" {
		recognizeURL = DefaultRecognizeURL
	}

	transport := http.DefaultTransport
	if insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		recognizeURL: recognizeURL,
		tokens:       tokens,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
		log: logging.WithComponent("salutespeech"),
	}
}

type recognizeResponse struct {
	Result []string `json:"result"`
	Status int      `json:"status"`
}

// Recognize submits raw PCM audio (16 kHz, 16-bit, mono) and returns the
// first non-empty transcript candidate. An empty transcript is not an
// error; the caller decides how to react.
func (c *Client) Recognize(ctx context.Context, pcm []byte) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.recognizeURL, bytes.NewReader(pcm))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrService, err)
	}

	req.Header.Set("Content-Type", pcmContentType)
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
		c.log.Warn("recognition failed",
			slog.Int("status", resp.StatusCode),
			slog.Int("audio_bytes", len(pcm)))
		return "", fmt.Errorf("%w: status %d", ErrService, resp.StatusCode)
	}

	var parsed recognizeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", ErrService, err)
	}

	var text string
	for _, candidate := range parsed.Result {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			text = trimmed
			break
		}
	}
	c.log.Debug("audio transcribed",
		slog.Int("audio_bytes", len(pcm)),
		slog.Int("text_len", len(text)))

	return text, nil
}
