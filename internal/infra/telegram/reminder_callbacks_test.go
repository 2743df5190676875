package telegram

import (
	"context"
	"errors"
	"testing"

	"habit_reminder_service/internal/app"
	"habit_reminder_service/internal/domain/reminder"
	"habit_reminder_service/internal/domain/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

func TestParseCallbackData(t *testing.T) {
	id := uuid.MustParse("6f1c2f4e-8a0b-4c1d-9e2f-3a4b5c6d7e8f")

	tests := []struct {
		name       string
		data       string
		wantAction callbackAction
		wantErr    bool
	}{
		{name: "pause with telebot prefix", data: "\fpause_" + id.String(), wantAction: actionPause},
		{name: "pause without prefix", data: "pause_" + id.String(), wantAction: actionPause},
		{name: "toggle", data: "\ftoggle_" + id.String(), wantAction: actionToggle},
		{name: "unknown action", data: "\fans_yes_12", wantErr: true},
		{name: "bad id", data: "\fpause_123", wantErr: true},
		{name: "braced id", data: "\fpause_{" + id.String() + "}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, got, err := parseCallbackData(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, action)
			assert.Equal(t, id, got)
		})
	}
}

func newCallbackHandlers(accounts *fakeAccounts, reminders *fakeReminders) *callbackHandlers {
	return &callbackHandlers{ctx: context.Background(), accounts: accounts, reminders: reminders, logger: testLogger()}
}

func TestCallback_Pause(t *testing.T) {
	id := uuid.New()
	reminders := &fakeReminders{result: &reminder.Reminder{ID: id, Kind: reminder.KindRecurring, Title: "Stretch", Emoji: "🧘", IsPaused: true}}
	h := newCallbackHandlers(&fakeAccounts{}, reminders)
	c := &fakeContext{chatID: 100, callback: &telebot.Callback{Data: "\fpause_" + id.String()}}

	require.NoError(t, h.handle(c))
	assert.Equal(t, []uuid.UUID{id}, reminders.paused)
	require.Len(t, c.responses, 1)
	assert.Equal(t, "Paused 🧘 Stretch. Resume it from /reminders.", c.responses[0].Text)
}

func TestCallback_Toggle(t *testing.T) {
	id := uuid.New()
	reminders := &fakeReminders{result: &reminder.Reminder{ID: id, Kind: reminder.KindRecurring, Title: "Walk", Emoji: "🚶"}}
	h := newCallbackHandlers(&fakeAccounts{chatUser: &user.User{ID: uuid.New()}}, reminders)
	c := &fakeContext{chatID: 100, callback: &telebot.Callback{Data: "\ftoggle_" + id.String()}}

	require.NoError(t, h.handle(c))
	assert.Equal(t, []uuid.UUID{id}, reminders.toggled)
	assert.Equal(t, "Resumed 🚶 Walk.", c.responses[0].Text)
}

func TestCallback_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{reminder.ErrCannotPauseOneTime, "One-time reminders can't be paused."},
		{app.ErrNotReminderOwner, "Reminder not found."},
		{reminder.ErrNotFound, "Reminder not found."},
		{app.ErrReminderArchived, "This reminder is no longer active."},
		{user.ErrNotFound, "This chat is not connected to an account."},
		{errors.New("db down"), "Something went wrong."},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := newCallbackHandlers(&fakeAccounts{}, &fakeReminders{err: tt.err})
			c := &fakeContext{chatID: 100, callback: &telebot.Callback{Data: "\fpause_" + uuid.NewString()}}

			require.NoError(t, h.handle(c))
			require.Len(t, c.responses, 1)
			assert.Equal(t, tt.want, c.responses[0].Text)
		})
	}
}

func TestCallback_Unknown(t *testing.T) {
	reminders := &fakeReminders{}
	h := newCallbackHandlers(&fakeAccounts{}, reminders)
	c := &fakeContext{chatID: 100, callback: &telebot.Callback{Data: "\fsomething_else"}}

	require.NoError(t, h.handle(c))
	assert.Equal(t, "Unknown action.", c.responses[0].Text)
	assert.Empty(t, reminders.paused)
}
