package advance

import (
	"strings"

	"github.com/expenseflow/expense-approval/internal"
)

// CreateAdvanceDTO is the request payload for a new advance request.
type CreateAdvanceDTO struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (dto CreateAdvanceDTO) Validate() error {
	if dto.Amount <= 0 {
		return internal.NewValidationError("amount must be greater than 0", internal.ErrCodeInvalidAmount)
	}
	if len(strings.TrimSpace(dto.Reason)) < MinReasonLength {
		return ErrReasonTooShort
	}
	return nil
}

// ReviewDTO settles a pending request.
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

// DisburseDTO records the payout reference.
type DisburseDTO struct {
	PaymentReference string `json:"payment_reference"`
}

func (dto DisburseDTO) Validate() error {
	if dto.PaymentReference == "" {
		return internal.NewValidationError("a payment reference is required", internal.ErrCodeValidationFailed)
	}
	return nil
}
