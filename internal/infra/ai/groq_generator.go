package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainAI "habit_reminder_service/internal/domain/ai"
	"habit_reminder_service/internal/domain/reminder"

	"github.com/sashabaranov/go-openai"
)

var ErrEmptyCompletion = errors.New("no message generated")

var toneDescriptions = map[reminder.Tone]string{
	reminder.ToneMotivational: "encouraging and energetic",
	reminder.ToneFriendly:     "warm and casual",
	reminder.ToneDirect:       "brief and to-the-point",
	reminder.ToneFunny:        "humorous and playful",
}

const (
	temperature = 0.8
	maxTokens   = 50
)

// ChatGenerator produces reminder text through an OpenAI-compatible chat completion API (Groq by default).
type ChatGenerator struct {
	client *openai.Client
	model  string
}

func NewChatGenerator(apiKey, baseURL, model string) *ChatGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &ChatGenerator{client: openai.NewClientWithConfig(cfg), model: model}
}

func (g *ChatGenerator) Generate(ctx context.Context, p domainAI.Prompt) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(p)},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := cleanCompletion(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// BuildPrompt renders the generation instruction for one reminder.
func BuildPrompt(p domainAI.Prompt) string {
	tone, ok := toneDescriptions[p.Tone]
	if !ok {
		tone = toneDescriptions[reminder.DefaultTone]
	}

	contextLine := "This is a reminder."
	if p.HoursSince > 0 {
		unit := "hours"
		if p.HoursSince == 1 {
			unit = "hour"
		}
		contextLine = fmt.Sprintf("It's been %d %s since the last reminder.", p.HoursSince, unit)
	}

	return fmt.Sprintf(`Generate a %s reminder message for "%s".
Keep it under 15 words.
%s
Make it contextual and include a relevant emoji.
Return only the message text, no quotes or extra formatting.`, tone, p.Title, contextLine)
}

// cleanCompletion trims whitespace and the wrapping quotes models tend to add anyway.
func cleanCompletion(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range [][2]string{{`"`, `"`}, {"“", "”"}, {"'", "'"}} {
		open, closing := q[0], q[1]
		if len(s) > len(open)+len(closing) && strings.HasPrefix(s, open) && strings.HasSuffix(s, closing) {
			s = strings.TrimSpace(s[len(open) : len(s)-len(closing)])
		}
	}
	return s
}
