package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification for display.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Notification is a user-facing outcome message.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// New builds an unread notification stamped now.
func New(kind Kind, title, message string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Destructive reports whether the notification describes a failure.
func (n Notification) Destructive() bool {
	return n.Kind == KindError
}

// Notifier delivers notifications to one destination
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Notify delivers a single notification
	Notify(ctx context.Context, n Notification) error
}
