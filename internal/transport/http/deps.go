package http

import (
	"context"

	"github.com/roombook/api/internal/domain"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
}

// NotificationRepository is the minimal interface the router requires from a notification store.
type NotificationRepository interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) (*domain.Notification, error)
}
