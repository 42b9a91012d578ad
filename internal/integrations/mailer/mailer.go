package mailer

import "context"

type Attachment struct {
	Filename string
	Content  []byte
}

type Message struct {
	To       string
	ToName   string
	From     string
	FromName string
	Subject  string
	HTML     string

	Attachment *Attachment
}

// Client sends one rendered message. Implementations fail with a delivery
// error on provider rejection; the caller decides retry semantics.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
