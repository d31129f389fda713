// Package notification persists booking notifications and mirrors them to
// the user's inbox. Email delivery is best effort: a failed send is logged
// and never propagated, matching how the verification store swallows its
// own backend failures.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/roombook/api/internal/domain"
	"github.com/roombook/api/internal/pkg/id"
)

// Store is the slice of the persistence layer this service needs.
type Store interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) (*domain.Notification, error)
}

// UserStore resolves the recipient's email address.
type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// Mailer delivers the notification email, best effort.
type Mailer interface {
	Send(to, subject, body string) error
}

type Service interface {
	Create(ctx context.Context, data domain.NotificationData) error
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error)
}

type service struct {
	repo   Store
	users  UserStore
	mailer Mailer
	log    *slog.Logger
}

func NewService(repo Store, users UserStore, mailer Mailer) Service {
	return &service{repo: repo, users: users, mailer: mailer, log: slog.Default()}
}

// Create stores the notification and emails the user. Only the store write
// can fail the call; the email leg is fire-and-forget.
func (s *service) Create(ctx context.Context, data domain.NotificationData) error {
	metadata := ""
	if data.Metadata != nil {
		b, err := json.Marshal(data.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = string(b)
	}

	now := time.Now().UTC()
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         data.UserID,
		Type:           data.Type,
		Title:          data.Title,
		Message:        data.Message,
		Metadata:       metadata,
		Readed:         0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	user, err := s.users.Get(ctx, data.UserID)
	if err != nil {
		s.log.Warn("notification stored but recipient lookup failed", "user_id", data.UserID, "err", err)
		return nil
	}
	if err := s.mailer.Send(user.Email, data.Title, data.Message); err != nil {
		s.log.Warn("could not email notification", "user_id", data.UserID, "err", err)
	}
	return nil
}

func (s *service) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListUnread(ctx, userID)
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, fmt.Errorf("not your notification: %w", domain.ErrForbidden)
	}
	return s.repo.MarkAsRead(ctx, notificationID)
}
