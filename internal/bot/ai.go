package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/deadline"
)

func (r *Router) sendAIMenu(ctx context.Context, userID int64) {
	if r.ai == nil {
		r.sendText(ctx, userID,
			"🤖 AI помощник не настроен.\n\nИспользуйте /task для создания задач вручную.")
		return
	}

	kb := NewKeyboard(
		Row(Btn("📝 Создать задачу через AI", "ai:create_task")),
		Row(Btn("❓ Задать вопрос", "ai:ask")),
		Row(Btn("⬅️ Главное меню", "menu:main")))

	r.sendMessage(ctx, userID,
		"🤖 **AI Помощник Max efficiency**\n\n"+
			"Я могу помочь вам:\n"+
			"• Создать задачу естественным языком\n"+
			"• Ответить на вопросы о продуктивности\n"+
			"• Дать советы по управлению задачами\n\n"+
			"Просто напишите мне, что вам нужно!", kb)
}

func (r *Router) handleAICreatePrompt(ctx context.Context, cb CallbackQuery) {
	kb := NewKeyboard(Row(Btn("❌ Отменить", "menu:main")))
	r.answerCallbackMessage(ctx, cb,
		"🤖 **Создание задачи через AI**\n\n"+
			"Опишите задачу естественным языком. Например:\n"+
			"• \"Создай задачу: позвонить клиенту завтра, высокий приоритет\"\n"+
			"• \"Нужно подготовить отчет через 3 дня\"\n"+
			"• \"Купить продукты сегодня вечером\"\n\n"+
			"Я автоматически извлеку название, описание, приоритет и дедлайн!", kb)
}

func (r *Router) handleAIAskPrompt(ctx context.Context, cb CallbackQuery) {
	kb := NewKeyboard(Row(Btn("❌ Отменить", "menu:main")))
	r.answerCallbackMessage(ctx, cb,
		"❓ **Задайте вопрос AI помощнику**\n\n"+
			"Я могу помочь с:\n"+
			"• Советами по продуктивности\n"+
			"• Методами управления временем\n"+
			"• Приоритизацией задач\n"+
			"• Борьбой с прокрастинацией\n\n"+
			"Просто напишите ваш вопрос!", kb)
}

// handleFreeText is the AI fallback for non-command text without an
// active session: extract a task intent, otherwise answer as a question.
func (r *Router) handleFreeText(ctx context.Context, userID int64, text string) {
	r.sendText(ctx, userID, "🤖 Обрабатываю ваш запрос...")

	intent := r.ai.ParseTaskIntent(ctx, text)

	if intent.IsTaskCreation && strings.TrimSpace(intent.Title) != "" {
		priority := intent.NormalizedPriority()

		var dl *time.Time
		if ts, ok := deadline.Resolve(intent.Deadline, r.now()); ok {
			dl = &ts
		}

		_, err := r.tasks.Create(ctx, userID, intent.Title, intent.Description, dl, priority)
		if err != nil {
			r.log.Error("failed to create AI task",
				slog.Int64("user_id", userID),
				slog.Any("error", err))
			r.sendText(ctx, userID,
				"❌ **Ошибка при создании задачи**\n\nНе удалось создать задачу. Попробуйте использовать команду /task для ручного создания.")
			return
		}

		msg, kb := formatAITask(intent.Title, intent.Description, priority, intent.Deadline, dl)
		r.sendMessage(ctx, userID, msg, kb)
		return
	}

	r.answerAsQuestion(ctx, userID, text)
}

func (r *Router) answerAsQuestion(ctx context.Context, userID int64, question string) {
	userContext := "У пользователя нет активных задач."
	if tasks, err := r.tasks.ListActive(ctx, userID); err == nil && len(tasks) > 0 {
		userContext = fmt.Sprintf("У пользователя %d активных задач.", len(tasks))
	}

	answer, err := r.ai.AnswerQuestion(ctx, question, userContext)
	if err != nil {
		r.replyError(ctx, userID, err)
		return
	}

	kb := NewKeyboard(
		Row(Btn("❓ Задать еще вопрос", "ai:ask")),
		Row(Btn("📝 Создать задачу", "ai:create_task")),
		Row(Btn("⬅️ Главное меню", "menu:main")))

	r.sendMessage(ctx, userID, "🤖 **AI Помощник:**\n\n"+answer, kb)
}
