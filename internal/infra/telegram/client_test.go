package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type recordingBot struct {
	to   telebot.Recipient
	what interface{}
	opts []interface{}
	err  error
}

func (r *recordingBot) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	r.to, r.what, r.opts = to, what, opts
	if r.err != nil {
		return nil, r.err
	}
	return &telebot.Message{ID: 321}, nil
}

func TestTelebotAdapter_SendMessage(t *testing.T) {
	bot := &recordingBot{}
	a := &TelebotAdapter{bot: bot}

	id, err := a.SendMessage(555, "💧 Drink water", &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	require.NoError(t, err)
	assert.Equal(t, 321, id)
	assert.Equal(t, "555", bot.to.Recipient())
	assert.Equal(t, "💧 Drink water", bot.what)
}

func TestTelebotAdapter_SendMessageError(t *testing.T) {
	bot := &recordingBot{err: telebot.ErrBlockedByUser}
	a := &TelebotAdapter{bot: bot}

	_, err := a.SendMessage(555, "hi", nil)
	assert.ErrorIs(t, err, telebot.ErrBlockedByUser)
	require.Len(t, bot.opts, 1)
	assert.IsType(t, &telebot.SendOptions{}, bot.opts[0])
}
