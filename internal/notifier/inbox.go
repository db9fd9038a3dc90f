package notifier

import (
	"context"
	"sync"

	"github.com/newthinker/pairdash/internal/core"
)

// DefaultInboxCapacity bounds the notification list when no size is given.
const DefaultInboxCapacity = 100

// Inbox keeps the most recent notifications in memory, newest first.
type Inbox struct {
	mu       sync.RWMutex
	items    []Notification
	capacity int
}

// NewInbox creates an inbox holding at most capacity notifications.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultInboxCapacity
	}
	return &Inbox{capacity: capacity}
}

func (b *Inbox) Name() string { return "inbox" }

// Notify prepends n, dropping the oldest entry when full.
func (b *Inbox) Notify(ctx context.Context, n Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append([]Notification{n}, b.items...)
	if len(b.items) > b.capacity {
		b.items = b.items[:b.capacity]
	}
	return nil
}

// List returns a copy of all notifications, newest first.
func (b *Inbox) List() []Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Notification, len(b.items))
	copy(out, b.items)
	return out
}

// Unread returns the unread notifications, newest first.
func (b *Inbox) Unread() []Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := []Notification{}
	for _, n := range b.items {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out
}

// UnreadCount returns the number of unread notifications.
func (b *Inbox) UnreadCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, n := range b.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead flags one notification as read.
func (b *Inbox) MarkRead(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.items {
		if b.items[i].ID == id {
			b.items[i].Read = true
			return nil
		}
	}
	return core.ErrNotFound
}

// MarkAllRead flags every notification as read.
func (b *Inbox) MarkAllRead() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.items {
		b.items[i].Read = true
	}
}
