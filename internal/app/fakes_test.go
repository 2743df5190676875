package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"habit_reminder_service/internal/domain/ai"
	"habit_reminder_service/internal/domain/email"
	"habit_reminder_service/internal/domain/reminder"
	"habit_reminder_service/internal/domain/user"
	"habit_reminder_service/internal/infra/retry"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"gopkg.in/telebot.v3"
)

var errBoom = errors.New("boom")

func testLogger() (*logrus.Entry, *logtest.Hook) {
	l, hook := logtest.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(l), hook
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: 0}
}

// fakeReminderRepo is an in-memory reminder store that honours the conditional transitions.
type fakeReminderRepo struct {
	mu        sync.Mutex
	reminders map[uuid.UUID]*reminder.Reminder
	owners    map[uuid.UUID]reminder.Owner // by user id
	logs      []*reminder.LogEntry
	stats     map[string]int

	listErr       error
	appendErr     error
	statErr       error
	forceClaimErr error
	// laggingRead returns every stored reminder from ListDue, ignoring eligibility.
	laggingRead bool
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{
		reminders: map[uuid.UUID]*reminder.Reminder{},
		owners:    map[uuid.UUID]reminder.Owner{},
		stats:     map[string]int{},
	}
}

func statKey(userID uuid.UUID, date time.Time) string {
	return userID.String() + "/" + date.Format("2006-01-02")
}

func (f *fakeReminderRepo) put(r *reminder.Reminder, owner reminder.Owner) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders[r.ID] = r
	f.owners[r.UserID] = owner
}

func (f *fakeReminderRepo) get(id uuid.UUID) reminder.Reminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.reminders[id]
}

func (f *fakeReminderRepo) logsFor(id uuid.UUID) []*reminder.LogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*reminder.LogEntry
	for _, l := range f.logs {
		if l.ReminderID == id {
			out = append(out, l)
		}
	}
	return out
}

func (f *fakeReminderRepo) ListDue(_ context.Context, now time.Time) ([]*reminder.DueReminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*reminder.DueReminder
	for _, r := range f.reminders {
		if !f.laggingRead && !r.Eligible(now) {
			continue
		}
		snapshot := *r
		out = append(out, &reminder.DueReminder{Reminder: &snapshot, Owner: f.owners[r.UserID]})
	}
	return out, nil
}

func (f *fakeReminderRepo) claimable(id uuid.UUID, expected time.Time) (*reminder.Reminder, error) {
	if f.forceClaimErr != nil {
		return nil, f.forceClaimErr
	}
	r, ok := f.reminders[id]
	if !ok || !r.NextScheduledAt.Equal(expected) || !r.IsActive || r.IsPaused || r.ArchivedAt.Valid {
		return nil, reminder.ErrClaimLost
	}
	return r, nil
}

func (f *fakeReminderRepo) Reschedule(_ context.Context, cmd reminder.RescheduleCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, err := f.claimable(cmd.ID, cmd.ExpectedNextAt)
	if err != nil {
		return err
	}
	r.NextScheduledAt = cmd.NextScheduledAt
	r.LastSentAt.Time, r.LastSentAt.Valid = cmd.LastSentAt, true
	return nil
}

func (f *fakeReminderRepo) Archive(_ context.Context, cmd reminder.ArchiveCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, err := f.claimable(cmd.ID, cmd.ExpectedNextAt)
	if err != nil {
		return err
	}
	r.IsActive = false
	r.ArchivedAt.Time, r.ArchivedAt.Valid = cmd.ArchivedAt, true
	if cmd.LastSentAt.Valid {
		r.LastSentAt = cmd.LastSentAt
	}
	return nil
}

func (f *fakeReminderRepo) AppendLog(_ context.Context, e *reminder.LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.logs = append(f.logs, e)
	return nil
}

func (f *fakeReminderRepo) IncrementDailyStat(_ context.Context, userID uuid.UUID, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statErr != nil {
		return f.statErr
	}
	f.stats[statKey(userID, date)]++
	return nil
}

func (f *fakeReminderRepo) Create(_ context.Context, r *reminder.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders[r.ID] = r
	return nil
}

func (f *fakeReminderRepo) GetByID(_ context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reminders[id]
	if !ok {
		return nil, reminder.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeReminderRepo) SetPaused(_ context.Context, id uuid.UUID, paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reminders[id]
	if !ok {
		return reminder.ErrNotFound
	}
	r.IsPaused = paused
	return nil
}

func (f *fakeReminderRepo) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]*reminder.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*reminder.Reminder
	for _, r := range f.reminders {
		if r.UserID == userID && r.IsActive && !r.ArchivedAt.Valid {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

type sentChat struct {
	ChatID  int64
	Text    string
	Options *telebot.SendOptions
}

type fakeChat struct {
	mu     sync.Mutex
	sent   []sentChat
	calls  int
	failN  int // fail the first failN calls; -1 fails always
	err    error
	nextID int
}

func (f *fakeChat) SendMessage(chatID int64, text string, opts *telebot.SendOptions) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failN < 0 || f.calls <= f.failN {
		if f.err != nil {
			return 0, f.err
		}
		return 0, errBoom
	}
	f.nextID++
	f.sent = append(f.sent, sentChat{ChatID: chatID, Text: text, Options: opts})
	return 41 + f.nextID, nil
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []email.Message
	calls int
	fail  bool
}

func (f *fakeMailer) Send(_ context.Context, msg email.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return "", errBoom
	}
	f.sent = append(f.sent, msg)
	return "mail-" + msg.To, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	text    string
	err     error
	panics  bool
	prompts []ai.Prompt
}

func (f *fakeGenerator) Generate(ctx context.Context, p ai.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, p)
	if f.panics {
		panic("generator exploded")
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*user.User
	linkErr error
}

func newFakeUserRepo(users ...*user.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[uuid.UUID]*user.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserRepo) GetByChatID(_ context.Context, chatID int64) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.TelegramChatID.Valid && u.TelegramChatID.Int64 == chatID {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserRepo) GetByConnectToken(_ context.Context, token string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ConnectToken.Valid && u.ConnectToken.String == token {
			c := *u
			return &c, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserRepo) LinkTelegram(_ context.Context, userID uuid.UUID, token string, chatID int64, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linkErr != nil {
		return f.linkErr
	}
	u, ok := f.users[userID]
	if !ok || !u.ConnectToken.Valid || u.ConnectToken.String != token {
		return user.ErrConnectTokenExpired
	}
	u.TelegramChatID.Int64, u.TelegramChatID.Valid = chatID, true
	u.TelegramUsername.String, u.TelegramUsername.Valid = username, username != ""
	u.ConnectToken.Valid = false
	u.ConnectTokenExpiresAt.Valid = false
	return nil
}

type stubSweeper struct {
	summary *SweepSummary
	err     error
	calls   int
}

func (s *stubSweeper) Run(context.Context) (*SweepSummary, error) {
	s.calls++
	return s.summary, s.err
}
