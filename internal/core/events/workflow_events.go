package events

import (
	"fmt"
	"time"

	"github.com/expenseflow/expense-approval/internal"
)

const (
	TypeExpenseStatusChanged = "expense.status_changed"
	TypeAdvanceStatusChanged = "advance.status_changed"
)

// ExpenseStatusChanged is published after an expense transition commits.
type ExpenseStatusChanged struct {
	ExpenseID int64
	OwnerID   int64
	Status    internal.ExpenseStatus
	ActorID   int64
	Title     string
	At        time.Time
}

func (e ExpenseStatusChanged) EventType() string { return TypeExpenseStatusChanged }

func (e ExpenseStatusChanged) EventID() string {
	return fmt.Sprintf("expense-%d-%s-%d", e.ExpenseID, e.Status, e.At.UnixNano())
}

func (e ExpenseStatusChanged) OccurredAt() time.Time { return e.At }

func (e ExpenseStatusChanged) Payload() interface{} { return e }

// AdvanceStatusChanged is published after an advance-request transition.
type AdvanceStatusChanged struct {
	AdvanceID   int64
	RequesterID int64
	Status      internal.AdvanceStatus
	ActorID     int64
	At          time.Time
}

func (e AdvanceStatusChanged) EventType() string { return TypeAdvanceStatusChanged }

func (e AdvanceStatusChanged) EventID() string {
	return fmt.Sprintf("advance-%d-%s-%d", e.AdvanceID, e.Status, e.At.UnixNano())
}

func (e AdvanceStatusChanged) OccurredAt() time.Time { return e.At }

func (e AdvanceStatusChanged) Payload() interface{} { return e }
