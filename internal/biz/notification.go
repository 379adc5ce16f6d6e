package biz

import (
	"strconv"
	"sync"
	"time"

	"CreditPulse/internal/model"
)

const maxNotifications = 100

// NotificationStore keeps the session's user-facing notification feed,
// newest first, bounded so a long-lived session cannot grow without limit.
type NotificationStore struct {
	mu     sync.Mutex
	items  []model.Notification
	locale string
	nextID int64

	now func() time.Time
}

// NewNotificationStore creates an empty feed rendering titles in the given
// locale.
func NewNotificationStore(locale string) *NotificationStore {
	return &NotificationStore{
		locale: locale,
		now:    time.Now,
	}
}

// Add prepends a notification of the given kind. The title is resolved from
// the kind and the store's locale.
func (s *NotificationStore) Add(kind, message string, amount float64, requestID string) model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	n := model.Notification{
		ID:        "ntf_" + strconv.FormatInt(s.nextID, 10),
		Kind:      kind,
		Title:     model.NotificationTitle(kind, s.locale),
		Message:   message,
		Amount:    amount,
		RequestID: requestID,
		CreatedAt: s.now(),
	}

	s.items = append([]model.Notification{n}, s.items...)
	if len(s.items) > maxNotifications {
		s.items = s.items[:maxNotifications]
	}
	return n
}

// List returns a copy of the feed, newest first.
func (s *NotificationStore) List() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Clear drops all notifications.
func (s *NotificationStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Len returns the current feed size.
func (s *NotificationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
