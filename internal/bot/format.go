package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/task"
)

func priorityEmoji(priority string) string {
	switch priority {
	case task.PriorityHigh:
		return "🔴"
	case task.PriorityLow:
		return "🟢"
	default:
		return "🟡"
	}
}

func priorityLabel(priority string) string {
	switch priority {
	case task.PriorityHigh:
		return "Высокий"
	case task.PriorityLow:
		return "Низкий"
	default:
		return "Средний"
	}
}

func formatDate(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

func truncateText(s string, maxLen int) string {
	if len([]rune(s)) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

// formatTaskList renders the active task list plus one view button per
// task. At most 10 tasks are shown.
func formatTaskList(tasks []task.Task, now time.Time) (string, *Keyboard) {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 **Ваши задачи (%d):**\n\n", len(tasks))

	var rows [][]Button
	for i, t := range tasks {
		if i == 10 {
			break
		}

		overdueMark := ""
		if t.Overdue(now) {
			overdueMark = "⚠️ "
		}
		title := truncateText(t.Title, 30)

		fmt.Fprintf(&b, "%d. %s %s%s\n", i+1, priorityEmoji(t.Priority), overdueMark, title)
		rows = append(rows, Row(Btn(fmt.Sprintf("%d. %s", i+1, title), "task:view:"+t.ID)))
	}

	rows = append(rows,
		Row(Btn("➕ Создать задачу", "task:create")),
		Row(Btn("📊 Статистика", "stats:show")),
		Row(Btn("⬅️ Главное меню", "menu:main")))

	return b.String(), NewKeyboard(rows...)
}

// formatTaskView renders one task card. The short id is the first 8
// characters of the UUID.
func formatTaskView(t *task.Task, now time.Time) (string, *Keyboard) {
	shortID := t.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	description := t.Description
	if description == "" {
		description = "Не указано"
	}

	deadlineText := "Не задан"
	overdueText := ""
	if t.Deadline != nil {
		deadlineText = formatDate(*t.Deadline)
		if t.Overdue(now) {
			overdueText = "\n⚠️ **ПРОСРОЧЕНО!**"
		}
	}

	text := fmt.Sprintf(
		"📋 **Задача #%s**\n\n**Название:** %s\n**Описание:** %s\n**Приоритет:** %s %s\n**Дедлайн:** %s%s\n**Создано:** %s",
		shortID, t.Title, description,
		priorityEmoji(t.Priority), priorityLabel(t.Priority),
		deadlineText, overdueText, formatDate(t.CreatedAt))

	kb := NewKeyboard(
		Row(Btn("✅ Выполнено", "task:complete:"+t.ID)),
		Row(Btn("🗑️ Удалить", "task:delete:"+t.ID)),
		Row(Btn("⬅️ К списку задач", "tasks:list")))

	return text, kb
}

func formatStats(stats *task.Stats) (string, *Keyboard) {
	var b strings.Builder
	b.WriteString("📊 **Ваша статистика за 7 дней:**\n\n")
	fmt.Fprintf(&b, "📝 Всего задач: %d\n", stats.Total)
	fmt.Fprintf(&b, "✅ Выполнено: %d\n", stats.Completed)
	fmt.Fprintf(&b, "⏳ В работе: %d\n", stats.Pending)
	fmt.Fprintf(&b, "⚠️ Просрочено: %d\n\n", stats.Overdue)
	b.WriteString("**По приоритетам:**\n")
	fmt.Fprintf(&b, "🔴 Высокий: %d\n", stats.ByPriority.High)
	fmt.Fprintf(&b, "🟡 Средний: %d\n", stats.ByPriority.Medium)
	fmt.Fprintf(&b, "🟢 Низкий: %d\n\n", stats.ByPriority.Low)
	b.WriteString("**Выполнено:**\n")
	fmt.Fprintf(&b, "📅 Сегодня: %d\n", stats.CompletedToday)
	fmt.Fprintf(&b, "📆 За неделю: %d", stats.CompletedThisWeek)

	kb := NewKeyboard(
		Row(Btn("📋 Мои задачи", "tasks:list")),
		Row(Btn("🗑️ Очистить выполненные", "stats:clear")),
		Row(Btn("⬅️ Главное меню", "menu:main")))

	return b.String(), kb
}

// formatSavedTask renders the confirmation after the guided dialogue
// persists a task.
func formatSavedTask(title, priority string, deadline *time.Time) string {
	deadlineText := "не задан"
	if deadline != nil {
		deadlineText = formatDate(*deadline)
	}
	return fmt.Sprintf(
		"✅ **Задача добавлена!**\n\n**Название:** %s\n**Дедлайн:** %s\n**Приоритет:** %s %s",
		title, deadlineText, priorityEmoji(priority), priorityLabel(priority))
}

// formatAITask renders the confirmation after AI intent extraction
// persists a task. deadlineText is the user's original phrasing.
func formatAITask(title, description, priority, deadlineText string, deadline *time.Time) (string, *Keyboard) {
	var b strings.Builder
	b.WriteString("✅ **Задача создана через AI!**\n\n")
	fmt.Fprintf(&b, "**Название:** %s\n", title)
	if description != "" {
		fmt.Fprintf(&b, "**Описание:** %s\n", description)
	}
	fmt.Fprintf(&b, "**Приоритет:** %s %s\n", priorityEmoji(priority), priorityLabel(priority))
	if deadline != nil {
		fmt.Fprintf(&b, "**Дедлайн:** %s\n", deadlineText)
	}

	kb := NewKeyboard(
		Row(Btn("📋 Мои задачи", "tasks:list")),
		Row(Btn("➕ Создать еще", "ai:create_task")),
		Row(Btn("⬅️ Главное меню", "menu:main")))

	return b.String(), kb
}
