// Package policy is the authorization matrix evaluated per (actor, row,
// operation). The predicates are pure so the same rules can be applied at the
// service layer and mirrored as scoped WHERE clauses at the repository layer;
// the repository layer is the authority of record and must never be weaker.
package policy

import (
	"github.com/expenseflow/expense-approval/internal"
)

// WriteOp names a mutation on an expense row for CanWriteExpense.
type WriteOp string

const (
	OpEditDraft     WriteOp = "edit_draft"
	OpDeleteDraft   WriteOp = "delete_draft"
	OpSubmit        WriteOp = "submit"
	OpManagerReview WriteOp = "manager_review"
	OpOwnerReview   WriteOp = "owner_review"
	OpMarkPending   WriteOp = "mark_pending"
	OpPay           WriteOp = "pay"
)

// managerVisible are the expense statuses a manager-role actor may read.
var managerVisible = map[internal.ExpenseStatus]bool{
	internal.ExpenseStatusSubmitted:       true,
	internal.ExpenseStatusReviewed:        true,
	internal.ExpenseStatusManagerApproved: true,
	internal.ExpenseStatusManagerRejected: true,
}

// accountsVisible are the expense statuses an accounts-role actor may read.
var accountsVisible = map[internal.ExpenseStatus]bool{
	internal.ExpenseStatusOwnerApproved:  true,
	internal.ExpenseStatusPendingPayment: true,
	internal.ExpenseStatusPaid:           true,
}

// CanReadExpense reports whether the actor may see the expense row. The row
// owner always sees their own rows; the owner role sees everything; manager
// and accounts see only their pipeline slice.
func CanReadExpense(actor internal.Actor, rowOwnerID int64, status internal.ExpenseStatus) bool {
	if actor.ID == rowOwnerID {
		return true
	}
	if actor.HasRole(internal.RoleOwner) {
		return true
	}
	if actor.HasRole(internal.RoleManager) && managerVisible[status] {
		return true
	}
	if actor.HasRole(internal.RoleAccounts) && accountsVisible[status] {
		return true
	}
	return false
}

// CanWriteExpense reports whether the actor may perform op on a row in the
// given status. It checks role and stage only; value-level constraints such as
// a non-empty rejection reason belong to the service layer, which may be
// stricter but never weaker.
func CanWriteExpense(actor internal.Actor, rowOwnerID int64, status internal.ExpenseStatus, op WriteOp) bool {
	switch op {
	case OpEditDraft, OpDeleteDraft, OpSubmit:
		return actor.ID == rowOwnerID && status == internal.ExpenseStatusDraft
	case OpManagerReview:
		return actor.HasRole(internal.RoleManager) &&
			(status == internal.ExpenseStatusSubmitted || status == internal.ExpenseStatusReviewed)
	case OpOwnerReview:
		return actor.HasRole(internal.RoleOwner) && status == internal.ExpenseStatusManagerApproved
	case OpMarkPending:
		return actor.HasRole(internal.RoleAccounts) && status == internal.ExpenseStatusOwnerApproved
	case OpPay:
		return actor.HasRole(internal.RoleAccounts) &&
			(status == internal.ExpenseStatusOwnerApproved || status == internal.ExpenseStatusPendingPayment)
	}
	return false
}

// CanReadExpenseFile derives transitively: a file is visible iff the parent
// expense is visible. Status logs follow the same rule.
func CanReadExpenseFile(actor internal.Actor, expenseOwnerID int64, status internal.ExpenseStatus) bool {
	return CanReadExpense(actor, expenseOwnerID, status)
}

// CanAttachFile enforces file-category ownership: bills come from the expense
// owner, payment proofs from accounts.
func CanAttachFile(actor internal.Actor, expenseOwnerID int64, category string) bool {
	switch category {
	case "bill":
		return actor.ID == expenseOwnerID
	case "payment_proof":
		return actor.HasRole(internal.RoleAccounts)
	}
	return false
}

// CanReadAdvance mirrors the expense read rule without per-stage slicing:
// requester always, manager/owner all (they review), accounts approved onward.
func CanReadAdvance(actor internal.Actor, requesterID int64, status internal.AdvanceStatus) bool {
	if actor.ID == requesterID {
		return true
	}
	if actor.HasAnyRole(internal.RoleManager, internal.RoleOwner) {
		return true
	}
	if actor.HasRole(internal.RoleAccounts) {
		return status == internal.AdvanceStatusApproved || status == internal.AdvanceStatusDisbursed
	}
	return false
}

// CanReviewAdvance allows manager or owner to settle a pending request.
func CanReviewAdvance(actor internal.Actor, status internal.AdvanceStatus) bool {
	return actor.HasAnyRole(internal.RoleManager, internal.RoleOwner) &&
		status == internal.AdvanceStatusPending
}

// CanDisburseAdvance allows accounts to disburse an approved request.
func CanDisburseAdvance(actor internal.Actor, status internal.AdvanceStatus) bool {
	return actor.HasRole(internal.RoleAccounts) && status == internal.AdvanceStatusApproved
}

// CanReadProfile: self always; any staff role sees all profiles so approval
// queues can render requester names.
func CanReadProfile(actor internal.Actor, profileUserID int64) bool {
	return actor.ID == profileUserID || actor.IsStaff()
}

// CanEditProfile: users edit only their own profile.
func CanEditProfile(actor internal.Actor, profileUserID int64) bool {
	return actor.ID == profileUserID
}

// CanDeleteProfile: only the owner role removes users.
func CanDeleteProfile(actor internal.Actor) bool {
	return actor.HasRole(internal.RoleOwner)
}

// CanAccessNotification: notifications are strictly self-addressed.
func CanAccessNotification(actor internal.Actor, notificationUserID int64) bool {
	return actor.ID == notificationUserID
}

// CanManageRoles: only the owner role grants or revokes role assignments.
func CanManageRoles(actor internal.Actor) bool {
	return actor.HasRole(internal.RoleOwner)
}
