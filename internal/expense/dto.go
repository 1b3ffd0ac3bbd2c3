package expense

import (
	"time"

	"github.com/expenseflow/expense-approval/internal"
)

// CreateExpenseDTO is the request payload for creating a draft.
type CreateExpenseDTO struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Amount      int64     `json:"amount"`
	Category    string    `json:"category"`
	ExpenseDate time.Time `json:"expense_date"`
}

func (dto CreateExpenseDTO) Validate() error {
	if dto.Title == "" {
		return internal.NewValidationError("title is required", internal.ErrCodeValidationFailed)
	}
	if dto.Amount <= 0 {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.Category == "" {
		return internal.NewValidationError("category is required", internal.ErrCodeValidationFailed)
	}
	if dto.ExpenseDate.IsZero() {
		return internal.NewValidationError("expense date is required", internal.ErrCodeInvalidDate)
	}
	if dto.ExpenseDate.After(endOfToday()) {
		return internal.NewValidationError("expense date cannot be in the future", internal.ErrCodeInvalidDate)
	}
	return nil
}

// UpdateDraftDTO carries partial edits to a draft. Nil fields are untouched.
type UpdateDraftDTO struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Amount      *int64     `json:"amount,omitempty"`
	Category    *string    `json:"category,omitempty"`
	ExpenseDate *time.Time `json:"expense_date,omitempty"`
}

func (dto UpdateDraftDTO) Validate() error {
	if dto.Title != nil && *dto.Title == "" {
		return internal.NewValidationError("title cannot be empty", internal.ErrCodeValidationFailed)
	}
	if dto.Amount != nil && *dto.Amount <= 0 {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if dto.ExpenseDate != nil && dto.ExpenseDate.After(endOfToday()) {
		return internal.NewValidationError("expense date cannot be in the future", internal.ErrCodeInvalidDate)
	}
	return nil
}

// ReviewDTO is shared by the manager and owner review endpoints.
type ReviewDTO struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

const (
	ReviewActionApprove = "approve"
	ReviewActionReject  = "reject"
)

func (dto ReviewDTO) Validate() error {
	if dto.Action != ReviewActionApprove && dto.Action != ReviewActionReject {
		return internal.NewValidationError("action must be either 'approve' or 'reject'", internal.ErrCodeValidationFailed)
	}
	if dto.Action == ReviewActionReject && dto.Reason == "" {
		return ErrReasonRequired
	}
	return nil
}

// PayDTO carries the payment reference recorded on the paid transition.
type PayDTO struct {
	PaymentReference string `json:"payment_reference"`
}

func (dto PayDTO) Validate() error {
	if dto.PaymentReference == "" {
		return ErrReferenceRequired
	}
	return nil
}

// endOfToday allows same-day expenses regardless of submission time.
func endOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
}
