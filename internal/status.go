package internal

// ExpenseStatus is the expense pipeline position. The pipeline is strictly
// ordered with terminal reject branches; transitions outside the table below
// are never legal no matter who asks.
type ExpenseStatus string

const (
	ExpenseStatusDraft           ExpenseStatus = "draft"
	ExpenseStatusSubmitted       ExpenseStatus = "submitted"
	ExpenseStatusReviewed        ExpenseStatus = "reviewed"
	ExpenseStatusManagerApproved ExpenseStatus = "manager_approved"
	ExpenseStatusOwnerApproved   ExpenseStatus = "owner_approved"
	ExpenseStatusPendingPayment  ExpenseStatus = "pending_payment"
	ExpenseStatusPaid            ExpenseStatus = "paid"
	ExpenseStatusManagerRejected ExpenseStatus = "manager_rejected"
	ExpenseStatusOwnerRejected   ExpenseStatus = "owner_rejected"
)

var expenseTransitions = map[ExpenseStatus][]ExpenseStatus{
	ExpenseStatusDraft:     {ExpenseStatusSubmitted},
	ExpenseStatusSubmitted: {ExpenseStatusReviewed, ExpenseStatusManagerApproved, ExpenseStatusManagerRejected},
	// reviewed is a manager-stage sub-state with the same rights as submitted.
	ExpenseStatusReviewed:        {ExpenseStatusManagerApproved, ExpenseStatusManagerRejected},
	ExpenseStatusManagerApproved: {ExpenseStatusOwnerApproved, ExpenseStatusOwnerRejected},
	ExpenseStatusOwnerApproved:   {ExpenseStatusPendingPayment, ExpenseStatusPaid},
	ExpenseStatusPendingPayment:  {ExpenseStatusPaid},
}

func (s ExpenseStatus) Valid() bool {
	switch s {
	case ExpenseStatusDraft, ExpenseStatusSubmitted, ExpenseStatusReviewed,
		ExpenseStatusManagerApproved, ExpenseStatusOwnerApproved,
		ExpenseStatusPendingPayment, ExpenseStatusPaid,
		ExpenseStatusManagerRejected, ExpenseStatusOwnerRejected:
		return true
	}
	return false
}

func (s ExpenseStatus) CanTransitionTo(next ExpenseStatus) bool {
	for _, t := range expenseTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s ExpenseStatus) IsTerminal() bool {
	return s == ExpenseStatusPaid || s == ExpenseStatusManagerRejected || s == ExpenseStatusOwnerRejected
}

// StageRole returns the role that owns acting on an expense in this status.
// The draft stage belongs to the row owner, which role-wise is employee.
func (s ExpenseStatus) StageRole() Role {
	switch s {
	case ExpenseStatusDraft:
		return RoleEmployee
	case ExpenseStatusSubmitted, ExpenseStatusReviewed:
		return RoleManager
	case ExpenseStatusManagerApproved:
		return RoleOwner
	case ExpenseStatusOwnerApproved, ExpenseStatusPendingPayment:
		return RoleAccounts
	}
	return ""
}

// AdvanceStatus is the cash-advance lifecycle position.
type AdvanceStatus string

const (
	AdvanceStatusPending   AdvanceStatus = "pending"
	AdvanceStatusApproved  AdvanceStatus = "approved"
	AdvanceStatusRejected  AdvanceStatus = "rejected"
	AdvanceStatusDisbursed AdvanceStatus = "disbursed"
)

var advanceTransitions = map[AdvanceStatus][]AdvanceStatus{
	AdvanceStatusPending:  {AdvanceStatusApproved, AdvanceStatusRejected},
	AdvanceStatusApproved: {AdvanceStatusDisbursed},
}

func (s AdvanceStatus) Valid() bool {
	switch s {
	case AdvanceStatusPending, AdvanceStatusApproved, AdvanceStatusRejected, AdvanceStatusDisbursed:
		return true
	}
	return false
}

func (s AdvanceStatus) CanTransitionTo(next AdvanceStatus) bool {
	for _, t := range advanceTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s AdvanceStatus) IsTerminal() bool {
	return s == AdvanceStatusRejected || s == AdvanceStatusDisbursed
}
