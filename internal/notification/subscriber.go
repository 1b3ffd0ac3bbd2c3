package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/expenseflow/expense-approval/internal/core/events"
)

// Subscriber turns workflow status events into notification rows for the
// row owner. Self-initiated transitions (a user submitting their own
// expense) produce no notification.
type Subscriber struct {
	service *Service
	logger  *slog.Logger
}

func NewSubscriber(service *Service, logger *slog.Logger) *Subscriber {
	return &Subscriber{service: service, logger: logger}
}

func (s *Subscriber) Register(bus *events.EventBus) {
	bus.Subscribe(events.TypeExpenseStatusChanged, s.onExpenseStatusChanged)
	bus.Subscribe(events.TypeAdvanceStatusChanged, s.onAdvanceStatusChanged)
}

func (s *Subscriber) onExpenseStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.Payload().(events.ExpenseStatusChanged)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.EventType())
	}
	if e.ActorID == e.OwnerID {
		return nil
	}

	subject := fmt.Sprintf("Expense %q is now %s", e.Title, expenseStatusLabel(e.Status))
	body := fmt.Sprintf("Your expense #%d changed status to %s.", e.ExpenseID, e.Status)
	return s.service.CreateSystem(e.OwnerID, KindExpenseStatus, subject, body)
}

func (s *Subscriber) onAdvanceStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.Payload().(events.AdvanceStatusChanged)
	if !ok {
		return fmt.Errorf("unexpected payload for %s", event.EventType())
	}
	if e.ActorID == e.RequesterID {
		return nil
	}

	subject := fmt.Sprintf("Advance request #%d is now %s", e.AdvanceID, advanceStatusLabel(e.Status))
	body := fmt.Sprintf("Your advance request #%d changed status to %s.", e.AdvanceID, e.Status)
	return s.service.CreateSystem(e.RequesterID, KindAdvanceStatus, subject, body)
}

func expenseStatusLabel(status internal.ExpenseStatus) string {
	switch status {
	case internal.ExpenseStatusManagerApproved:
		return "approved by your manager"
	case internal.ExpenseStatusOwnerApproved:
		return "fully approved"
	case internal.ExpenseStatusPendingPayment:
		return "queued for payment"
	case internal.ExpenseStatusPaid:
		return "paid"
	case internal.ExpenseStatusManagerRejected, internal.ExpenseStatusOwnerRejected:
		return "rejected"
	default:
		return string(status)
	}
}

func advanceStatusLabel(status internal.AdvanceStatus) string {
	switch status {
	case internal.AdvanceStatusApproved:
		return "approved"
	case internal.AdvanceStatusRejected:
		return "rejected"
	case internal.AdvanceStatusDisbursed:
		return "disbursed"
	default:
		return string(status)
	}
}
