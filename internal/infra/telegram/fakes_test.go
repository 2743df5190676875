package telegram

import (
	"context"

	"habit_reminder_service/internal/app"
	"habit_reminder_service/internal/domain/reminder"
	"habit_reminder_service/internal/domain/user"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"gopkg.in/telebot.v3"
)

func testLogger() *logrus.Entry {
	log, _ := logtest.NewNullLogger()
	return logrus.NewEntry(log)
}

// fakeContext implements the telebot.Context methods the handlers use. Anything else panics.
type fakeContext struct {
	telebot.Context

	chatID    int64
	sender    *telebot.User
	payload   string
	args      []string
	callback  *telebot.Callback
	sent      []string
	sentOpts  [][]interface{}
	responses []*telebot.CallbackResponse
}

func (f *fakeContext) Chat() *telebot.Chat       { return &telebot.Chat{ID: f.chatID} }
func (f *fakeContext) Sender() *telebot.User     { return f.sender }
func (f *fakeContext) Message() *telebot.Message { return &telebot.Message{Payload: f.payload} }
func (f *fakeContext) Args() []string            { return f.args }
func (f *fakeContext) Callback() *telebot.Callback {
	return f.callback
}

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.sent = append(f.sent, what.(string))
	f.sentOpts = append(f.sentOpts, opts)
	return nil
}

func (f *fakeContext) Respond(resp ...*telebot.CallbackResponse) error {
	f.responses = append(f.responses, resp...)
	return nil
}

func (f *fakeContext) lastSent() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type fakeAccounts struct {
	linked    *user.User
	linkErr   error
	chatUser  *user.User
	chatErr   error
	linkCalls []string
}

func (f *fakeAccounts) LinkTelegram(_ context.Context, token string, chatID int64, username string) (*user.User, error) {
	f.linkCalls = append(f.linkCalls, token+"|"+username)
	if f.linkErr != nil {
		return nil, f.linkErr
	}
	return f.linked, nil
}

func (f *fakeAccounts) UserForChat(context.Context, int64) (*user.User, error) {
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	if f.chatUser == nil {
		return nil, user.ErrNotFound
	}
	return f.chatUser, nil
}

type fakeReminders struct {
	created   []app.ReminderDraft
	createErr error
	list      []*reminder.Reminder
	listUser  *user.User
	listErr   error
	result    *reminder.Reminder
	err       error
	toggled   []uuid.UUID
	paused    []uuid.UUID
}

func (f *fakeReminders) Create(_ context.Context, owner *user.User, d app.ReminderDraft) (*reminder.Reminder, error) {
	f.created = append(f.created, d)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.result, nil
}

func (f *fakeReminders) TogglePause(_ context.Context, _ uuid.UUID, reminderID uuid.UUID) (*reminder.Reminder, error) {
	f.toggled = append(f.toggled, reminderID)
	return f.result, f.err
}

func (f *fakeReminders) PauseFromChat(_ context.Context, _ int64, reminderID uuid.UUID) (*reminder.Reminder, error) {
	f.paused = append(f.paused, reminderID)
	return f.result, f.err
}

func (f *fakeReminders) ListForChat(context.Context, int64) (*user.User, []*reminder.Reminder, error) {
	return f.listUser, f.list, f.listErr
}

type fakeAdmin struct {
	adminID int64
	summary *app.SweepSummary
	err     error
	runs    int
}

func (f *fakeAdmin) IsAdmin(senderID int64) bool { return senderID == f.adminID }

func (f *fakeAdmin) RunSweep(context.Context, int64) (*app.SweepSummary, error) {
	f.runs++
	return f.summary, f.err
}
