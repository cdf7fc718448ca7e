package store

import (
	"context"
	"time"

	"github.com/nhle/gh-notifier/internal/model"
)

// NotificationFilter controls filtering and pagination for notification
// queries.
type NotificationFilter struct {
	UnreadOnly bool
	Reason     *string
	Repository *string
	Limit      int
	Offset     int
}

// StoredNotification is a notification plus the bookkeeping columns the
// store keeps about it.
type StoredNotification struct {
	model.Notification

	// BatchID is the poll cycle that last delivered this notification.
	BatchID string

	// InsertedAt is when the notification was first stored.
	InsertedAt time.Time

	// ReadAt is when the notification was marked read locally.
	ReadAt *time.Time
}

// Store defines the persistence interface for delivered notifications.
type Store interface {
	UpsertNotifications(ctx context.Context, batchID string, items []model.Notification) error
	GetNotifications(ctx context.Context, filter NotificationFilter) ([]StoredNotification, error)
	GetNotificationByID(ctx context.Context, id string) (*StoredNotification, error)
	MarkRead(ctx context.Context, id string) error
	CountUnread(ctx context.Context) (int, error)
	Close() error
}
