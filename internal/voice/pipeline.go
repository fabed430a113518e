// Package voice turns inbound voice messages into tasks or answers. The
// pipeline downloads the attachment, transcodes it to the canonical PCM
// format, transcribes it and routes the transcript through intent
// extraction. Temp files are removed on every path.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/deadline"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/logging"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/task"
)

// ErrTranscoderMissing reports that the ffmpeg binary is not installed.
// The bot surfaces it as "voice input unavailable" instead of a generic
// processing failure.
var ErrTranscoderMissing = errors.New("ffmpeg is not installed")

// Transcriber converts canonical PCM audio to text.
type Transcriber interface {
	Recognize(ctx context.Context, pcm []byte) (string, error)
}

// IntentParser extracts a task-creation intent from a transcript.
type IntentParser interface {
	ParseTaskIntent(ctx context.Context, text string) *task.Intent
}

// Answerer answers a free-form question.
type Answerer interface {
	AnswerQuestion(ctx context.Context, question, userContext string) (string, error)
}

// TaskStore persists tasks created from voice messages.
type TaskStore interface {
	Create(ctx context.Context, userID int64, title, description string, deadline *time.Time, priority string) (string, error)
}

// ResultKind classifies the single outcome of one pipeline run.
type ResultKind int

const (
	// ResultNoAudio means the message carried no audio attachment.
	ResultNoAudio ResultKind = iota
	// ResultEmptyTranscript means recognition succeeded but heard nothing.
	ResultEmptyTranscript
	// ResultTaskCreated means a task was extracted and persisted.
	ResultTaskCreated
	// ResultAnswered means the transcript was answered as a question.
	ResultAnswered
)

// Result is the outcome of one voice message. Exactly one reply to the
// user is formatted from it.
type Result struct {
	Kind       ResultKind
	Transcript string

	// Set for ResultTaskCreated.
	TaskID   string
	Title    string
	Priority string
	Deadline *time.Time

	// Set for ResultAnswered.
	Answer string
}

// Pipeline processes voice messages end to end.
type Pipeline struct {
	transcriber Transcriber
	intents     IntentParser
	answers     Answerer
	tasks       TaskStore

	tempDir    string
	httpClient *http.Client
	log        *slog.Logger

	// Overridable in tests.
	checkTranscoder func() error
	transcode       func(ctx context.Context, src, dst string) error
	now             func() time.Time
}

// NewPipeline creates a pipeline writing temp files under tempDir.
func NewPipeline(transcriber Transcriber, intents IntentParser, answers Answerer, tasks TaskStore, tempDir string) *Pipeline {
	return &Pipeline{
		transcriber:     transcriber,
		intents:         intents,
		answers:         answers,
		tasks:           tasks,
		tempDir:         tempDir,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		log:             logging.WithComponent("voice"),
		checkTranscoder: checkFFmpeg,
		transcode:       ffmpegTranscode,
		now:             time.Now,
	}
}

// Process runs the pipeline for one message. audioURL is the attachment
// download URL; empty means no audio and the pipeline is a no-op. Every
// return path removes the temp files it created.
func (p *Pipeline) Process(ctx context.Context, userID int64, audioURL string) (*Result, error) {
	if audioURL == "" {
		return &Result{Kind: ResultNoAudio}, nil
	}

	if err := p.checkTranscoder(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	base := fmt.Sprintf("voice_%d_%d", userID, p.now().UnixNano())
	oggPath := filepath.Join(p.tempDir, base+".ogg")
	wavPath := filepath.Join(p.tempDir, base+".wav")
	defer p.removeTemp(oggPath)
	defer p.removeTemp(wavPath)

	if err := p.download(ctx, audioURL, oggPath); err != nil {
		return nil, err
	}

	if err := p.transcode(ctx, oggPath, wavPath); err != nil {
		return nil, fmt.Errorf("audio transcoding failed: %w", err)
	}

	audio, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcoded audio: %w", err)
	}

	transcript, err := p.transcriber.Recognize(ctx, audio)
	if err != nil {
		return nil, err
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return &Result{Kind: ResultEmptyTranscript}, nil
	}

	p.log.Info("voice message transcribed",
		slog.Int64("user_id", userID),
		slog.Int("transcript_len", len(transcript)))

	return p.route(ctx, userID, transcript)
}

// route sends the transcript through intent extraction and either persists
// a task or answers it as a question.
func (p *Pipeline) route(ctx context.Context, userID int64, transcript string) (*Result, error) {
	intent := p.intents.ParseTaskIntent(ctx, transcript)

	if intent.IsTaskCreation && strings.TrimSpace(intent.Title) != "" {
		priority := intent.NormalizedPriority()

		var dl *time.Time
		if ts, ok := deadline.Resolve(intent.Deadline, p.now()); ok {
			dl = &ts
		}

		id, err := p.tasks.Create(ctx, userID, intent.Title, intent.Description, dl, priority)
		if err != nil {
			return nil, fmt.Errorf("failed to persist voice task: %w", err)
		}

		return &Result{
			Kind:       ResultTaskCreated,
			Transcript: transcript,
			TaskID:     id,
			Title:      intent.Title,
			Priority:   priority,
			Deadline:   dl,
		}, nil
	}

	answer, err := p.answers.AnswerQuestion(ctx, transcript, "")
	if err != nil {
		return nil, err
	}

	return &Result{
		Kind:       ResultAnswered,
		Transcript: transcript,
		Answer:     answer,
	}, nil
}

// download fetches the attachment into path.
func (p *Pipeline) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download audio: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("audio download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	return f.Close()
}

// removeTemp deletes a temp file. Deletion failures are logged and never
// override the pipeline outcome.
func (p *Pipeline) removeTemp(path string) {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		p.log.Warn("failed to remove temp file",
			slog.String("path", path),
			slog.Any("error", err))
	}
}

func checkFFmpeg() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return ErrTranscoderMissing
	}
	return nil
}

// ffmpegTranscode converts src to 16 kHz mono 16-bit WAV at dst.
func ffmpegTranscode(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", src,
		"-ar", "16000",
		"-ac", "1",
		"-sample_fmt", "s16",
		dst, "-y")

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %v: %s", err, truncate(string(out), 200))
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
