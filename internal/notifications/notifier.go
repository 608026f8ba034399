package notifications

import "context"

// Message is a rendered email ready for a Transport.
type Message struct {
	To       string
	Subject  string
	Text     string
	HTML     string
	Template string // metrics label only
}

// Transport delivers a single message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

type ConfirmationInput struct {
	Email    string
	Username string
	Token    string
}

type PasswordResetInput struct {
	Email    string
	Username string
	Token    string
}

type EmailChangeInput struct {
	NewEmail string
	Username string
	Token    string
}

type Notifier interface {
	SendConfirmation(ctx context.Context, in ConfirmationInput) error
	SendPasswordReset(ctx context.Context, in PasswordResetInput) error
	SendEmailChange(ctx context.Context, in EmailChangeInput) error
}
