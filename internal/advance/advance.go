package advance

import (
	"time"

	"github.com/expenseflow/expense-approval/internal"
)

// AdvanceRequest is a cash-advance row. A single review stage (manager or
// owner) gates it, then accounts disburses.
type AdvanceRequest struct {
	ID          int64                  `json:"id" gorm:"primaryKey"`
	RequesterID int64                  `json:"requester_id" gorm:"column:requester_id;not null;index"`
	Amount      int64                  `json:"amount" gorm:"not null"`
	Reason      string                 `json:"reason" gorm:"not null"`
	Status      internal.AdvanceStatus `json:"status" gorm:"column:status;default:pending;index"`

	ReviewedBy      *int64     `json:"reviewed_by,omitempty" gorm:"column:reviewed_by"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty" gorm:"column:reviewed_at"`
	RejectionReason *string    `json:"rejection_reason,omitempty" gorm:"column:rejection_reason"`

	DisbursedBy      *int64     `json:"disbursed_by,omitempty" gorm:"column:disbursed_by"`
	DisbursedAt      *time.Time `json:"disbursed_at,omitempty" gorm:"column:disbursed_at"`
	PaymentReference *string    `json:"payment_reference,omitempty" gorm:"column:payment_reference"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (AdvanceRequest) TableName() string {
	return "advance_requests"
}

func (a *AdvanceRequest) IsPending() bool {
	return a.Status == internal.AdvanceStatusPending
}

func (a *AdvanceRequest) IsTerminal() bool {
	return a.Status.IsTerminal()
}

// MinReasonLength keeps one-word justifications out of the review queue.
const MinReasonLength = 10

var (
	ErrAdvanceNotFound = internal.NewNotFoundError("advance request not found", internal.ErrCodeAdvanceNotFound)
	ErrReasonTooShort  = internal.NewValidationError("reason must be at least 10 characters", internal.ErrCodeValidationFailed)
	ErrReasonRequired  = internal.NewValidationError("a non-empty reason is required to reject", internal.ErrCodeReasonRequired)
)
