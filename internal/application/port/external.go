package port

import "context"

// Attachment is a file sent along with a message
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Message is an outgoing results email
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers results by email
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}
