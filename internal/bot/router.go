package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/gigachat"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/logging"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/salutespeech"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/sberauth"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/session"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/task"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/voice"
)

// AI is the chat-completion surface the router needs. Nil disables the
// free-text AI branch.
type AI interface {
	ParseTaskIntent(ctx context.Context, text string) *task.Intent
	AnswerQuestion(ctx context.Context, question, userContext string) (string, error)
}

// VoiceProcessor runs the voice ingestion pipeline. Nil disables the
// audio branch.
type VoiceProcessor interface {
	Process(ctx context.Context, userID int64, audioURL string) (*voice.Result, error)
}

// TaskStore is the persistence surface the router needs.
type TaskStore interface {
	Create(ctx context.Context, userID int64, title, description string, deadline *time.Time, priority string) (string, error)
	Get(ctx context.Context, taskID string, userID int64) (*task.Task, error)
	ListActive(ctx context.Context, userID int64) ([]task.Task, error)
	Complete(ctx context.Context, taskID string, userID int64) (bool, error)
	Delete(ctx context.Context, taskID string, userID int64) (bool, error)
	ClearCompleted(ctx context.Context, userID int64) (int64, error)
	Stats(ctx context.Context, userID int64, windowDays int) (*task.Stats, error)
}

// FocusService starts Pomodoro timers.
type FocusService interface {
	Start(userID int64) bool
	Duration() time.Duration
}

// Router dispatches inbound updates. Precedence for a text message:
// command, then active session, then audio attachment, then free-text AI,
// then no-op. A session always wins over an attached audio so dialogue
// input is never hijacked mid-flow.
type Router struct {
	messenger Messenger
	sessions  *session.Store
	tasks     TaskStore
	ai        AI
	voice     VoiceProcessor
	focus     FocusService
	log       *slog.Logger
	now       func() time.Time
}

// NewRouter wires the router. ai and voicePipe may be nil when the
// corresponding credential is absent; those branches degrade gracefully.
func NewRouter(messenger Messenger, sessions *session.Store, tasks TaskStore, ai AI, voicePipe VoiceProcessor, focus FocusService) *Router {
	return &Router{
		messenger: messenger,
		sessions:  sessions,
		tasks:     tasks,
		ai:        ai,
		voice:     voicePipe,
		focus:     focus,
		log:       logging.WithComponent("bot"),
		now:       time.Now,
	}
}

// HandleMessage processes one inbound message end to end. Exactly one
// branch fires.
func (r *Router) HandleMessage(ctx context.Context, msg Message) {
	text := strings.TrimSpace(msg.Text)

	if cmd, ok := parseCommand(text); ok && cmd != "/quit" {
		r.handleCommand(ctx, msg.UserID, cmd)
		return
	}

	if r.sessions.Has(msg.UserID) {
		r.handleDialogueText(ctx, msg.UserID, text)
		return
	}

	if msg.AudioURL != "" && r.voice != nil {
		r.handleVoice(ctx, msg.UserID, msg.AudioURL)
		return
	}

	if text == "" || strings.HasPrefix(text, "/") {
		if text != "" {
			r.sendUnknownCommand(ctx, msg.UserID)
		}
		return
	}

	if r.ai != nil {
		r.handleFreeText(ctx, msg.UserID, text)
		return
	}

	r.sendUnknownCommand(ctx, msg.UserID)
}

// HandleCallback processes one button press.
func (r *Router) HandleCallback(ctx context.Context, cb CallbackQuery) {
	route := ParseRoute(cb.Payload)

	switch route.Kind {
	case RouteMenuMain:
		r.answerWithMainMenu(ctx, cb)
	case RouteHelpShow:
		r.answerCallbackMessage(ctx, cb, helpText(), nil)
	case RouteTaskCreate:
		r.startDialogue(ctx, cb.UserID)
		r.answerCallback(ctx, cb, "")
	case RouteTaskCancel:
		r.cancelDialogue(ctx, cb)
	case RoutePriority:
		r.handlePrioritySelection(ctx, cb, route.Arg)
	case RouteDeadline:
		r.handleDeadlineSelection(ctx, cb, route.Arg)
	case RouteTasksList:
		r.answerWithTaskList(ctx, cb)
	case RouteTaskView:
		r.handleTaskView(ctx, cb, route.Arg)
	case RouteTaskComplete:
		r.handleTaskComplete(ctx, cb, route.Arg)
	case RouteTaskDelete:
		r.handleTaskDelete(ctx, cb, route.Arg)
	case RouteStatsShow:
		r.answerWithStats(ctx, cb)
	case RouteStatsClear:
		r.handleStatsClear(ctx, cb)
	case RouteAICreateTask:
		r.handleAICreatePrompt(ctx, cb)
	case RouteAIAsk:
		r.handleAIAskPrompt(ctx, cb)
	case RouteFocusStart:
		r.handleFocusCallback(ctx, cb)
	default:
		r.log.Warn("unknown callback payload",
			slog.Int64("user_id", cb.UserID),
			slog.String("payload", cb.Payload))
		r.answerCallback(ctx, cb, "Неизвестное действие")
	}
}

// parseCommand extracts a leading slash command token ("/tasks" from
// "/tasks extra"). Returns false for non-command text.
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := text
	if i := strings.IndexByte(text, ' '); i > 0 {
		cmd = text[:i]
	}
	switch cmd {
	case "/start", "/help", "/task", "/tasks", "/stats", "/ai", "/focus", "/quit":
		return cmd, true
	}
	return "", false
}

func (r *Router) handleVoice(ctx context.Context, userID int64, audioURL string) {
	r.sendText(ctx, userID, "🎤 Обрабатываю голосовое сообщение...")

	res, err := r.voice.Process(ctx, userID, audioURL)
	if err != nil {
		r.replyError(ctx, userID, err)
		return
	}

	switch res.Kind {
	case voice.ResultNoAudio:
		// Nothing to say.
	case voice.ResultEmptyTranscript:
		r.sendText(ctx, userID,
			"❌ **Не удалось распознать речь**\n\nПопробуйте:\n• Говорить четче и громче\n• Записать сообщение в тихом месте\n• Использовать текстовые команды")
	case voice.ResultTaskCreated:
		r.sendText(ctx, userID,
			"🎤 **Распознанный текст:**\n\n\""+res.Transcript+"\"")
		r.sendText(ctx, userID, formatSavedTask(res.Title, res.Priority, res.Deadline))
	case voice.ResultAnswered:
		r.sendText(ctx, userID,
			"🎤 **Распознанный текст:**\n\n\""+res.Transcript+"\"")
		r.sendText(ctx, userID,
			"🤖 **Ответ:**\n\n"+res.Answer+
				"\n\n_Если вы хотели создать задачу, попробуйте сформулировать запрос более явно, например: \"Создай задачу: позвонить клиенту завтра\"_")
	}
}

// replyError maps an internal error to one localized user message.
func (r *Router) replyError(ctx context.Context, userID int64, err error) {
	r.log.Error("update processing failed",
		slog.Int64("user_id", userID),
		slog.Any("error", err))

	var text string
	switch {
	case errors.Is(err, voice.ErrTranscoderMissing):
		text = "❌ **Голосовые сообщения временно недоступны**\n\nОбратитесь к администратору или используйте текстовые команды."
	case errors.Is(err, sberauth.ErrAuth):
		text = "❌ **Ошибка авторизации в AI-сервисе**\n\nПопробуйте позже или используйте текстовые команды."
	case errors.Is(err, gigachat.ErrService), errors.Is(err, salutespeech.ErrService):
		text = "❌ **Сервис временно недоступен**\n\nПопробуйте позже."
	default:
		text = "❌ **Ошибка при обработке запроса**\n\nПопробуйте позже или используйте обычные команды."
	}

	r.sendText(ctx, userID, text)
}

func (r *Router) sendText(ctx context.Context, userID int64, text string) {
	if err := r.messenger.SendText(ctx, userID, text); err != nil {
		r.log.Error("failed to send message",
			slog.Int64("user_id", userID),
			slog.Any("error", err))
	}
}

func (r *Router) sendMessage(ctx context.Context, userID int64, text string, kb *Keyboard) {
	if err := r.messenger.SendMessage(ctx, userID, text, kb); err != nil {
		r.log.Error("failed to send message",
			slog.Int64("user_id", userID),
			slog.Any("error", err))
	}
}

func (r *Router) answerCallback(ctx context.Context, cb CallbackQuery, notification string) {
	if err := r.messenger.AnswerCallback(ctx, cb.ID, notification); err != nil {
		r.log.Error("failed to answer callback",
			slog.Int64("user_id", cb.UserID),
			slog.Any("error", err))
	}
}

func (r *Router) answerCallbackMessage(ctx context.Context, cb CallbackQuery, text string, kb *Keyboard) {
	if err := r.messenger.AnswerCallbackMessage(ctx, cb.ID, text, kb); err != nil {
		r.log.Error("failed to answer callback",
			slog.Int64("user_id", cb.UserID),
			slog.Any("error", err))
	}
}
