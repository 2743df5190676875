package telegram

import "gopkg.in/telebot.v3"

// Callback data prefixes attached to inline buttons on reminder messages.
const (
	CallbackPausePrefix  = "pause_"
	CallbackTogglePrefix = "toggle_"
)

// Client defines an interface for sending messages via a Telegram bot.
// SendMessage returns the provider message id.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) (int, error)
}
