package model

import (
	"fmt"
	"time"
)

// Server-side credit notification event types
const (
	EventCreditApproved = "credit_approved"
	EventCreditRejected = "credit_rejected"
	EventCreditPending  = "credit_pending"
)

// NotificationEvent represents a credit event returned by the commerce backend.
// Two events are the same logical occurrence iff (request_id, type, id) match.
type NotificationEvent struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"`
	RequestID string  `json:"request_id"`
	Amount    float64 `json:"amount"`
	CreatedAt string  `json:"created_at"`
}

// Key returns the deduplication key for the event: request_id-type-id.
func (e *NotificationEvent) Key() string {
	return fmt.Sprintf("%s-%s-%d", e.RequestID, e.Type, e.ID)
}

// User-visible notification kinds produced by the credits service
const (
	NotificationSubmitted = "credit_submitted"
	NotificationApproved  = "credit_approved"
	NotificationRejected  = "credit_rejected"
	NotificationDeducted  = "balance_deducted"
	NotificationCredited  = "balance_credited"
)

// Notification is a user-visible record shown in the storefront portal.
// It is always created by the credits service, never by the poller directly.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Amount    float64   `json:"amount"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// notificationTitles maps notification kind to localized titles (en/ar).
var notificationTitles = map[string]map[string]string{
	NotificationSubmitted: {
		"en": "Credit Request Submitted",
		"ar": "تم إرسال طلب الرصيد",
	},
	NotificationApproved: {
		"en": "Credit Request Approved",
		"ar": "تمت الموافقة على طلب الرصيد",
	},
	NotificationRejected: {
		"en": "Credit Request Rejected",
		"ar": "تم رفض طلب الرصيد",
	},
	NotificationDeducted: {
		"en": "Balance Deducted",
		"ar": "تم خصم الرصيد",
	},
	NotificationCredited: {
		"en": "Balance Credited",
		"ar": "تمت إضافة الرصيد",
	},
}

// NotificationTitle returns the localized title for a notification kind.
// Unknown kinds and unknown locales fall back to the English title or the
// kind itself.
func NotificationTitle(kind, locale string) string {
	titles, ok := notificationTitles[kind]
	if !ok {
		return kind
	}
	if title, ok := titles[locale]; ok {
		return title
	}
	return titles["en"]
}
