package flow

import "context"

// MessageRef identifies one transport message for later edits or deletion.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether the reference points at no message.
func (r MessageRef) IsZero() bool {
	return r.ChatID == 0 && r.MessageID == 0
}

// SendOptions tunes outbound message rendering.
type SendOptions struct {
	// Secret marks the message body as a credential. The transport renders it
	// as literal preformatted text so clients cannot reflow or linkify it.
	Secret bool
}

// Messenger is the outbound transport consumed by the flow. DeleteMessage and
// EditText tolerate already-deleted messages: a not-found result is returned
// as a nil error.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, opts SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
}

// SessionProvider is the remote verification service. Neither call retries;
// a single failure terminates the current flow step.
type SessionProvider interface {
	SendCode(ctx context.Context, phone string) error
	CreateSession(ctx context.Context, phone, code string) (string, error)
}

// SessionSink receives the session credential after a successful flow.
// Persisting is best-effort: a sink failure never fails the flow.
type SessionSink interface {
	SaveSession(ctx context.Context, userID int64, session string) error
}
