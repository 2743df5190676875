package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"habit_reminder_service/internal/domain/ai"
	"habit_reminder_service/internal/domain/reminder"
	"habit_reminder_service/internal/infra/retry"

	"github.com/sirupsen/logrus"
)

// MessageComposer produces the text for one reminder occurrence.
type MessageComposer struct {
	generator      ai.Generator // nil disables generation
	policy         retry.Policy
	attemptTimeout time.Duration
	logger         *logrus.Entry
}

func NewMessageComposer(g ai.Generator, policy retry.Policy, attemptTimeout time.Duration, logger *logrus.Entry) *MessageComposer {
	return &MessageComposer{
		generator:      g,
		policy:         policy,
		attemptTimeout: attemptTimeout,
		logger:         logger,
	}
}

// Compose returns generated text for r, or r's fallback "{emoji} {title}" when generation
// is unavailable or keeps failing. It never fails.
func (c *MessageComposer) Compose(ctx context.Context, r *reminder.Reminder, tone reminder.Tone, hoursSince int) string {
	if c.generator == nil {
		return r.FallbackMessage()
	}

	prompt := ai.Prompt{Title: r.Title, Tone: tone, HoursSince: hoursSince}
	text, err := retry.DoValue(ctx, c.policy, func(ctx context.Context) (string, error) {
		if c.attemptTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
			defer cancel()
		}
		out, err := c.generator.Generate(ctx, prompt)
		if err != nil {
			return "", err
		}
		out = strings.TrimSpace(out)
		if out == "" {
			return "", fmt.Errorf("generator returned empty text")
		}
		return out, nil
	})
	if err != nil {
		c.logger.WithError(err).WithField("reminder_id", r.ID).Warn("Message generation failed, using fallback text")
		return r.FallbackMessage()
	}
	return text
}

// effectiveTone picks the reminder's tone, then the owner's default, then friendly.
func effectiveTone(r *reminder.Reminder, owner reminder.Owner) reminder.Tone {
	if r.Tone.Valid() {
		return r.Tone
	}
	if owner.DefaultTone.Valid() {
		return owner.DefaultTone
	}
	return reminder.DefaultTone
}
