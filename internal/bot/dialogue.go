package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/deadline"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/session"
	"github.com/MikhailPrudnikov/Max-efficiency/internal/task"
)

const (
	cancelHint         = "\n\n_Для отмены введите /quit или нажмите кнопку \"Отменить\"_"
	sessionExpiredText = "Сессия истекла. Начните добавление задачи заново."
	dialogueCancelled  = "❌ **Создание задачи отменено**"
)

func cancelKeyboard() *Keyboard {
	return NewKeyboard(Row(Btn("❌ Отменить", "task:cancel")))
}

// startDialogue begins (or restarts) the guided task-creation flow.
func (r *Router) startDialogue(ctx context.Context, userID int64) {
	r.sessions.Set(userID, &session.Session{Step: session.StepTitle})

	r.sendMessage(ctx, userID,
		"📝 Давайте создадим новую задачу!\n\n**Введите название задачи:**"+cancelHint,
		cancelKeyboard())
}

// handleDialogueText consumes free text while a session is active. Text in
// deadline_hours/deadline_date is strictly dialogue input; it never falls
// through to intent extraction.
func (r *Router) handleDialogueText(ctx context.Context, userID int64, text string) {
	sess := r.sessions.Get(userID)
	if sess == nil || text == "" {
		return
	}

	if strings.EqualFold(text, "/quit") {
		r.sessions.Delete(userID)
		r.sendText(ctx, userID, dialogueCancelled)
		return
	}

	switch sess.Step {
	case session.StepTitle:
		sess.Draft.Title = text
		sess.Step = session.StepDescription
		r.sessions.Set(userID, sess)
		r.sendMessage(ctx, userID,
			"📋 **Отлично! Теперь введите описание задачи:**"+cancelHint,
			cancelKeyboard())

	case session.StepDescription:
		sess.Draft.Description = text
		sess.Step = session.StepPriority
		r.sessions.Set(userID, sess)
		r.sendMessage(ctx, userID, "🎯 **Выберите приоритет задачи:**", priorityKeyboard())

	case session.StepHours:
		r.handleHoursInput(ctx, userID, sess, text)

	case session.StepDate:
		r.handleDateInput(ctx, userID, sess, text)

	default:
		// Button-driven steps ignore free text.
	}
}

func priorityKeyboard() *Keyboard {
	return NewKeyboard(
		Row(Btn("🔴 Высокий", "priority:high"), Btn("🟡 Средний", "priority:medium")),
		Row(Btn("🟢 Низкий", "priority:low")),
		Row(Btn("❌ Отменить", "task:cancel")))
}

func deadlineKeyboard() *Keyboard {
	return NewKeyboard(
		Row(Btn("Сегодня", "deadline:today"), Btn("Завтра", "deadline:tomorrow")),
		Row(Btn("Через 3 дня", "deadline:3days"), Btn("Через неделю", "deadline:week")),
		Row(Btn("⏰ Задать в часах", "deadline:custom_hours"), Btn("📅 Задать датой", "deadline:custom_date")),
		Row(Btn("Без дедлайна", "deadline:none")),
		Row(Btn("❌ Отменить", "task:cancel")))
}

func (r *Router) handlePrioritySelection(ctx context.Context, cb CallbackQuery, priority string) {
	sess := r.sessions.Get(cb.UserID)
	if sess == nil {
		r.answerCallback(ctx, cb, sessionExpiredText)
		return
	}

	if !task.ValidPriority(priority) {
		r.answerCallback(ctx, cb, "Неизвестный приоритет")
		return
	}

	sess.Draft.Priority = priority
	sess.Step = session.StepDeadline
	r.sessions.Set(cb.UserID, sess)

	text := "⏰ **Приоритет: " + priorityEmoji(priority) + " " + priorityLabel(priority) +
		"**\n\nТеперь выберите дедлайн:"
	r.answerCallbackMessage(ctx, cb, text, deadlineKeyboard())
}

func (r *Router) handleDeadlineSelection(ctx context.Context, cb CallbackQuery, choice string) {
	sess := r.sessions.Get(cb.UserID)
	if sess == nil {
		r.answerCallback(ctx, cb, sessionExpiredText)
		return
	}

	switch choice {
	case "custom_hours":
		sess.Step = session.StepHours
		r.sessions.Set(cb.UserID, sess)
		r.answerCallbackMessage(ctx, cb,
			"⏰ **Укажите дедлайн в часах**\n\nВведите количество часов:\n\n_Для отмены введите /quit_",
			cancelKeyboard())
		return

	case "custom_date":
		sess.Step = session.StepDate
		r.sessions.Set(cb.UserID, sess)
		r.answerCallbackMessage(ctx, cb,
			"📅 **Укажите дату дедлайна**\n\nВведите дату в формате:\n• `ГГГГ-ММ-ДД` (например: 2024-12-31)\n• `ДД.ММ.ГГГГ` (например: 31.12.2024)\n\n_Для отмены введите /quit_",
			cancelKeyboard())
		return

	case "none":
		r.answerCallback(ctx, cb, "Задача сохранена!")
		r.persistDraft(ctx, cb.UserID, sess, nil)
		return
	}

	ts, ok := deadline.FromChoice(choice, r.now())
	if !ok {
		r.answerCallback(ctx, cb, "Неизвестный вариант дедлайна")
		return
	}

	r.answerCallback(ctx, cb, "Задача сохранена!")
	r.persistDraft(ctx, cb.UserID, sess, &ts)
}

func (r *Router) handleHoursInput(ctx context.Context, userID int64, sess *session.Session, text string) {
	hours, err := deadline.ParseHours(text)
	if err != nil {
		// Stay in deadline_hours and re-prompt.
		r.sendMessage(ctx, userID,
			"❌ **Неверный формат!** Пожалуйста, введите целое положительное число (количество часов):\n\n_Для отмены введите /quit_",
			cancelKeyboard())
		return
	}

	ts := r.now().Add(time.Duration(hours) * time.Hour)
	r.persistDraft(ctx, userID, sess, &ts)
}

func (r *Router) handleDateInput(ctx context.Context, userID int64, sess *session.Session, text string) {
	ts, err := deadline.ParseDate(text, r.now())
	if err != nil {
		// Stay in deadline_date and re-prompt.
		msg := "❌ **Неверный формат даты!**\n\nВведите дату в формате:\n• `ГГГГ-ММ-ДД` (например: 2024-12-31)\n• `ДД.ММ.ГГГГ` (например: 31.12.2024)\n\n_Для отмены введите /quit_"
		if errors.Is(err, deadline.ErrPastDate) {
			msg = "❌ **Дата уже прошла!**\n\nУкажите дату в будущем:\n\n_Для отмены введите /quit_"
		}
		r.sendMessage(ctx, userID, msg, cancelKeyboard())
		return
	}

	r.persistDraft(ctx, userID, sess, &ts)
}

// persistDraft writes the accumulated draft through the task store, ends
// the session and confirms. Priority defaults to medium when the draft
// never reached the priority step.
func (r *Router) persistDraft(ctx context.Context, userID int64, sess *session.Session, dl *time.Time) {
	priority := sess.Draft.Priority
	if priority == "" {
		priority = task.PriorityMedium
	}

	_, err := r.tasks.Create(ctx, userID, sess.Draft.Title, sess.Draft.Description, dl, priority)
	r.sessions.Delete(userID)
	if err != nil {
		r.log.Error("failed to persist task draft",
			slog.Int64("user_id", userID),
			slog.Any("error", err))
		r.sendText(ctx, userID,
			"❌ **Не удалось сохранить задачу**\n\nПопробуйте еще раз: /task")
		return
	}

	r.sendText(ctx, userID, formatSavedTask(sess.Draft.Title, priority, dl))
}

func (r *Router) cancelDialogue(ctx context.Context, cb CallbackQuery) {
	r.sessions.Delete(cb.UserID)
	r.answerCallbackMessage(ctx, cb, dialogueCancelled, nil)
}
