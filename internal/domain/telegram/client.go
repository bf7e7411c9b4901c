package telegram

import "gopkg.in/telebot.v3"

// Client defines an interface for sending messages via a Telegram bot.
// The notification dispatcher depends on this interface rather than the
// concrete bot library, so tests can substitute a fake transport.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
