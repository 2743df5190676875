package ai

import (
	"context"

	"habit_reminder_service/internal/domain/reminder"
)

// Prompt carries the parameters of one generation request.
type Prompt struct {
	Title string
	Tone  reminder.Tone
	// HoursSince is the number of whole hours since the previous send; 0 means unknown.
	HoursSince int
}

// Generator produces short reminder text. Implementations must honour ctx deadlines.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}
