package bot

import (
	"context"
	"fmt"
)

func (r *Router) handleCommand(ctx context.Context, userID int64, cmd string) {
	switch cmd {
	case "/start":
		r.sendMainMenu(ctx, userID)
	case "/help":
		r.sendText(ctx, userID, helpText())
	case "/task":
		r.startDialogue(ctx, userID)
	case "/tasks":
		r.sendTaskList(ctx, userID)
	case "/stats":
		r.sendStats(ctx, userID)
	case "/ai":
		r.sendAIMenu(ctx, userID)
	case "/focus":
		r.startFocus(ctx, userID)
	}
}

func (r *Router) sendMainMenu(ctx context.Context, userID int64) {
	text := "👋 **Добро пожаловать в Max efficiency!**\n\n" +
		"Бот для управления задачами и повышения продуктивности.\n\n" +
		"**Доступные команды:**\n" +
		"- `/task` — создать новую задачу\n" +
		"- `/tasks` — просмотр задач\n" +
		"- `/stats` — статистика выполнения\n" +
		"- `/focus` — запустить Pomodoro-таймер (25 минут)\n" +
		"- `/ai` — AI помощник (создание задач и вопросы)\n" +
		"- `/help` — справка по командам\n\n" +
		"**Создавайте задачи голосом:**\n" +
		"🎤 Просто отправьте голосовое сообщение, например:\n" +
		"_\"Создай задачу: позвонить клиенту завтра, высокий приоритет\"_"

	kb := NewKeyboard(
		Row(Btn("📋 Мои задачи", "tasks:list")),
		Row(Btn("➕ Создать задачу", "task:create")),
		Row(Btn("🤖 AI Помощник", "ai:create_task")),
		Row(Btn("📊 Статистика", "stats:show")),
		Row(Btn("🍅 Фокус", "focus:start")),
		Row(Btn("❓ Справка", "help:show")))

	r.sendMessage(ctx, userID, text, kb)
}

func helpText() string {
	return "📋 **Справка по командам Max efficiency**\n\n" +
		"**Основные команды:**\n" +
		"• `/start` - Главное меню\n" +
		"• `/help` - Эта справка\n" +
		"• `/task` - Создать новую задачу\n" +
		"• `/tasks` - Просмотр задач\n" +
		"• `/stats` - Статистика выполнения\n" +
		"• `/focus` - Запустить таймер фокуса (25 минут)\n" +
		"• `/ai` - AI помощник\n\n" +
		"**🎤 Голосовые сообщения:**\n" +
		"• Отправьте голосовое сообщение для создания задачи\n" +
		"• AI автоматически распознает речь и извлечет:\n" +
		"  - Название задачи\n" +
		"  - Приоритет (высокий/средний/низкий)\n" +
		"  - Дедлайн (сегодня/завтра/через N дней)\n\n" +
		"**Примеры:**\n" +
		"  - _\"Позвонить клиенту завтра\"_\n" +
		"  - _\"Срочно: подготовить отчет через 3 дня\"_"
}

func (r *Router) sendTaskList(ctx context.Context, userID int64) {
	tasks, err := r.tasks.ListActive(ctx, userID)
	if err != nil {
		r.replyError(ctx, userID, err)
		return
	}

	if len(tasks) == 0 {
		kb := NewKeyboard(
			Row(Btn("➕ Создать задачу", "task:create")),
			Row(Btn("⬅️ Главное меню", "menu:main")))
		r.sendMessage(ctx, userID,
			"📋 **У вас пока нет активных задач**\n\nСоздайте новую задачу, чтобы начать!", kb)
		return
	}

	text, kb := formatTaskList(tasks, r.now())
	r.sendMessage(ctx, userID, text, kb)
}

func (r *Router) sendStats(ctx context.Context, userID int64) {
	stats, err := r.tasks.Stats(ctx, userID, 7)
	if err != nil {
		r.replyError(ctx, userID, err)
		return
	}

	text, kb := formatStats(stats)
	r.sendMessage(ctx, userID, text, kb)
}

func (r *Router) startFocus(ctx context.Context, userID int64) {
	if !r.focus.Start(userID) {
		r.sendText(ctx, userID, "🍅 Таймер уже запущен. Сначала закончите текущий фокус!")
		return
	}

	minutes := int(r.focus.Duration().Minutes())
	r.sendText(ctx, userID,
		fmt.Sprintf("🍅 Поехали! %d минут фокуса. Не отвлекайся, я напишу, когда время выйдет.", minutes))
}

func (r *Router) sendUnknownCommand(ctx context.Context, userID int64) {
	kb := NewKeyboard(
		Row(Btn("📋 Мои задачи", "tasks:list")),
		Row(Btn("➕ Создать задачу", "task:create")),
		Row(Btn("❓ Справка", "help:show")))

	r.sendMessage(ctx, userID,
		"🤔 Не понимаю эту команду.\n\nВоспользуйтесь кнопками ниже или введите /help для справки.", kb)
}

// Callback variants reuse the command renderers through the callback
// answer channel.

func (r *Router) answerWithMainMenu(ctx context.Context, cb CallbackQuery) {
	r.answerCallback(ctx, cb, "")
	r.sendMainMenu(ctx, cb.UserID)
}

func (r *Router) answerWithTaskList(ctx context.Context, cb CallbackQuery) {
	r.answerCallback(ctx, cb, "")
	r.sendTaskList(ctx, cb.UserID)
}

func (r *Router) answerWithStats(ctx context.Context, cb CallbackQuery) {
	r.answerCallback(ctx, cb, "")
	r.sendStats(ctx, cb.UserID)
}

func (r *Router) handleTaskView(ctx context.Context, cb CallbackQuery, taskID string) {
	t, err := r.tasks.Get(ctx, taskID, cb.UserID)
	if err != nil {
		r.answerCallback(ctx, cb, "Задача не найдена")
		return
	}

	text, kb := formatTaskView(t, r.now())
	r.answerCallbackMessage(ctx, cb, text, kb)
}

func (r *Router) handleTaskComplete(ctx context.Context, cb CallbackQuery, taskID string) {
	ok, err := r.tasks.Complete(ctx, taskID, cb.UserID)
	if err != nil || !ok {
		r.answerCallback(ctx, cb, "Не удалось выполнить задачу")
		return
	}

	r.answerCallbackMessage(ctx, cb, "✅ **Задача выполнена!**\n\nОтличная работа! 🎉", nil)
}

func (r *Router) handleTaskDelete(ctx context.Context, cb CallbackQuery, taskID string) {
	ok, err := r.tasks.Delete(ctx, taskID, cb.UserID)
	if err != nil || !ok {
		r.answerCallback(ctx, cb, "Не удалось удалить задачу")
		return
	}

	r.answerCallbackMessage(ctx, cb, "🗑️ **Задача удалена**", nil)
}

func (r *Router) handleStatsClear(ctx context.Context, cb CallbackQuery) {
	count, err := r.tasks.ClearCompleted(ctx, cb.UserID)
	if err != nil {
		r.answerCallback(ctx, cb, "Не удалось очистить задачи")
		return
	}

	r.answerCallbackMessage(ctx, cb,
		fmt.Sprintf("🗑️ **Очищено выполненных задач: %d**", count), nil)
}

func (r *Router) handleFocusCallback(ctx context.Context, cb CallbackQuery) {
	r.answerCallback(ctx, cb, "")
	r.startFocus(ctx, cb.UserID)
}
