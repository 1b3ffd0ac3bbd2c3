package notification

import (
	"log/slog"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/expenseflow/expense-approval/internal/policy"
)

type Repository interface {
	Create(n *Notification) error
	GetByID(id int64) (*Notification, error)
	ListForUser(userID int64, unreadOnly bool, limit, offset int) ([]*Notification, error)
	MarkRead(id int64) error
	MarkAllRead(userID int64) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateSystem writes a system-generated notification. It is called from
// event subscribers, never from a request path, so there is no actor check.
func (s *Service) CreateSystem(userID int64, kind, subject, body string) error {
	n := &Notification{
		UserID:  userID,
		Kind:    kind,
		Subject: subject,
		Body:    body,
	}
	if err := s.repo.Create(n); err != nil {
		s.logger.Error("failed to create notification", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (s *Service) List(actor internal.Actor, unreadOnly bool, limit, offset int) ([]*Notification, error) {
	return s.repo.ListForUser(actor.ID, unreadOnly, limit, offset)
}

// MarkRead flags one of the actor's own notifications as read.
func (s *Service) MarkRead(actor internal.Actor, id int64) error {
	n, err := s.repo.GetByID(id)
	if err != nil {
		return ErrNotificationNotFound
	}
	if !policy.CanAccessNotification(actor, n.UserID) {
		return internal.ErrUnauthorized
	}
	return s.repo.MarkRead(id)
}

func (s *Service) MarkAllRead(actor internal.Actor) error {
	return s.repo.MarkAllRead(actor.ID)
}
