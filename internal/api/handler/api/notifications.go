package api

import (
	"net/http"
	"strconv"

	"github.com/newthinker/pairdash/internal/api/response"
	"github.com/newthinker/pairdash/internal/notifier"
)

// Inbox is the notification history the dashboard reads.
type Inbox interface {
	List() []notifier.Notification
	Unread() []notifier.Notification
	UnreadCount() int
	MarkRead(id string) error
	MarkAllRead()
}

// NotificationsHandler serves the notification inbox.
type NotificationsHandler struct {
	inbox Inbox
}

// NewNotificationsHandler creates a new notifications handler.
func NewNotificationsHandler(inbox Inbox) *NotificationsHandler {
	return &NotificationsHandler{inbox: inbox}
}

// List returns notifications newest first. ?unread=true filters read ones.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.inbox.List()
	if unread, _ := strconv.ParseBool(r.URL.Query().Get("unread")); unread {
		items = h.inbox.Unread()
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"unread":        h.inbox.UnreadCount(),
	})
}

// MarkRead marks one notification read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.inbox.MarkRead(r.PathValue("id")); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]int{"unread": h.inbox.UnreadCount()})
}

// MarkAllRead marks every notification read.
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	h.inbox.MarkAllRead()
	response.JSON(w, http.StatusOK, map[string]int{"unread": 0})
}
