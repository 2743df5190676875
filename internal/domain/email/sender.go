package email

import "context"

// Message is an outbound email. HTML is optional.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers an email and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}
