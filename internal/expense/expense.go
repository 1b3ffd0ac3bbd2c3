package expense

import (
	"time"

	"github.com/expenseflow/expense-approval/internal"
)

// Expense is the approval-pipeline row. Per-stage actor and timestamp fields
// are only ever set by the transition that owns them.
type Expense struct {
	ID          int64                  `json:"id" gorm:"primaryKey"`
	UserID      int64                  `json:"user_id" gorm:"column:user_id;not null;index"`
	Title       string                 `json:"title" gorm:"not null"`
	Description string                 `json:"description,omitempty"`
	Amount      int64                  `json:"amount" gorm:"not null"`
	Category    string                 `json:"category"`
	ExpenseDate time.Time              `json:"expense_date" gorm:"column:expense_date;type:date"`
	Status      internal.ExpenseStatus `json:"status" gorm:"column:status;default:draft;index"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty" gorm:"column:submitted_at"`

	ManagerApprovedBy      *int64     `json:"manager_approved_by,omitempty" gorm:"column:manager_approved_by"`
	ManagerApprovedAt      *time.Time `json:"manager_approved_at,omitempty" gorm:"column:manager_approved_at"`
	ManagerRejectionReason *string    `json:"manager_rejection_reason,omitempty" gorm:"column:manager_rejection_reason"`

	OwnerApprovedBy      *int64     `json:"owner_approved_by,omitempty" gorm:"column:owner_approved_by"`
	OwnerApprovedAt      *time.Time `json:"owner_approved_at,omitempty" gorm:"column:owner_approved_at"`
	OwnerRejectionReason *string    `json:"owner_rejection_reason,omitempty" gorm:"column:owner_rejection_reason"`

	PaidBy           *int64     `json:"paid_by,omitempty" gorm:"column:paid_by"`
	PaidAt           *time.Time `json:"paid_at,omitempty" gorm:"column:paid_at"`
	PaymentReference *string    `json:"payment_reference,omitempty" gorm:"column:payment_reference"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

func (e *Expense) IsDraft() bool {
	return e.Status == internal.ExpenseStatusDraft
}

func (e *Expense) IsTerminal() bool {
	return e.Status.IsTerminal()
}

// AwaitsManager reports whether the expense sits in the manager stage.
// "reviewed" is a triage sub-state with identical transition rights.
func (e *Expense) AwaitsManager() bool {
	return e.Status == internal.ExpenseStatusSubmitted || e.Status == internal.ExpenseStatusReviewed
}

func (e *Expense) AwaitsOwner() bool {
	return e.Status == internal.ExpenseStatusManagerApproved
}

func (e *Expense) AwaitsPayment() bool {
	return e.Status == internal.ExpenseStatusOwnerApproved || e.Status == internal.ExpenseStatusPendingPayment
}

// StatusLog is the append-only audit trail. Rows are written once per status
// change and never updated or deleted.
type StatusLog struct {
	ID        int64                  `json:"id" gorm:"primaryKey"`
	ExpenseID int64                  `json:"expense_id" gorm:"column:expense_id;not null;index"`
	Status    internal.ExpenseStatus `json:"status" gorm:"not null"`
	ActorID   int64                  `json:"actor_id" gorm:"column:actor_id;not null"`
	Note      string                 `json:"note,omitempty"`
	CreatedAt time.Time              `json:"created_at" gorm:"column:created_at"`
}

func (StatusLog) TableName() string {
	return "expense_status_logs"
}

// SuggestedCategories is the fixed suggestion list shown to submitters; the
// category column itself stays free text.
var SuggestedCategories = []string{
	"Travel",
	"Food & Dining",
	"Office Supplies",
	"Software & Subscriptions",
	"Training",
	"Other",
}

var (
	ErrExpenseNotFound   = internal.NewNotFoundError("expense not found", internal.ErrCodeExpenseNotFound)
	ErrReasonRequired    = internal.NewValidationError("a non-empty reason is required to reject", internal.ErrCodeReasonRequired)
	ErrReferenceRequired = internal.NewValidationError("a payment reference is required", internal.ErrCodeValidationFailed)
)
