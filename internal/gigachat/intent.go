package gigachat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/MikhailPrudnikov/Max-efficiency/internal/task"
)

// intentSystemPrompt constrains the model to answer with strict JSON
// matching the task.Intent shape.
const intentSystemPrompt = `Ты - помощник по анализу намерений пользователя в системе управления задачами.
Твоя задача - определить, хочет ли пользователь создать задачу, и извлечь из его сообщения:
- Название задачи (title)
- Описание задачи (description)
- Приоритет (priority): high, medium или low
- Дедлайн (deadline) в формате "сегодня", "завтра", "через N дней/часов" или конкретную дату

Отвечай ТОЛЬКО в формате JSON без дополнительного текста:
{
  "isTaskCreation": true/false,
  "title": "название задачи",
  "description": "описание",
  "priority": "high/medium/low",
  "deadline": "сегодня/завтра/через 3 дня/2024-12-31"
}

Если пользователь НЕ хочет создать задачу, верни: {"isTaskCreation": false}`

// answerSystemPrompt is the persona for free-form Q&A.
const answerSystemPrompt = `Ты - AI-помощник в системе управления задачами Max efficiency.
Твоя задача - помогать пользователям с вопросами о продуктивности, управлении задачами и использовании системы.

Отвечай кратко, по делу и дружелюбно. Используй эмодзи для наглядности.`

// ParseTaskIntent asks the model whether the text is a task-creation request
// and extracts the task fields. Extraction failure must never break the
// dialogue: any request or decode error degrades to "not a task creation"
// so the caller falls back to treating the text as a question.
func (c *Client) ParseTaskIntent(ctx context.Context, text string) *task.Intent {
	notATask := &task.Intent{IsTaskCreation: false}

	reply, err := c.Chat(ctx, []Message{
		{Role: "system", Content: intentSystemPrompt},
		{Role: "user", Content: text},
	}, ChatOptions{Temperature: 0.3})
	if err != nil {
		c.log.Warn("intent extraction request failed", slog.Any("error", err))
		return notATask
	}

	raw, ok := firstJSONObject(reply)
	if !ok {
		c.log.Debug("no JSON object in intent reply", slog.String("reply", truncate(reply, 120)))
		return notATask
	}

	var intent task.Intent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		c.log.Debug("intent reply decode failed", slog.Any("error", err))
		return notATask
	}

	return &intent
}

// AnswerQuestion answers a free-form question with the assistant persona.
// userContext is optional extra context about the asking user, e.g. their
// active task count.
func (c *Client) AnswerQuestion(ctx context.Context, question, userContext string) (string, error) {
	prompt := answerSystemPrompt
	if userContext != "" {
		prompt += fmt.Sprintf("\n\nКонтекст пользователя:\n%s", userContext)
	}

	return c.SimpleChat(ctx, question, prompt)
}

// firstJSONObject returns the first balanced {...} substring of s. Braces
// inside JSON string literals are ignored.
func firstJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
