package postgres

import (
	"time"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/expenseflow/expense-approval/internal/expense"
	"gorm.io/gorm"
)

// ExpenseRepository implements expense.Repository using GORM. It is the
// storage-layer half of the authorization policy: list queries are scoped by
// role, and transitions are status-guarded conditional updates.
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.Repository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(exp *expense.Expense) error {
	return r.db.Create(exp).Error
}

func (r *ExpenseRepository) GetByID(id int64) (*expense.Expense, error) {
	var exp expense.Expense
	err := r.db.Where("id = ?", id).First(&exp).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, expense.ErrExpenseNotFound
		}
		return nil, err
	}
	return &exp, nil
}

func (r *ExpenseRepository) ListForOwner(ownerID int64, limit, offset int) ([]*expense.Expense, error) {
	var expenses []*expense.Expense
	err := r.db.Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&expenses).Error
	return expenses, err
}

// ListVisibleTo applies the read matrix as WHERE predicates. This is the
// enforcement that holds even if a caller bypasses the service layer: an
// actor without a qualifying role can only ever match its own rows.
func (r *ExpenseRepository) ListVisibleTo(actor internal.Actor, limit, offset int) ([]*expense.Expense, error) {
	q := r.db.Model(&expense.Expense{})

	switch {
	case actor.HasRole(internal.RoleOwner):
		// owner role reads everything
	case actor.HasRole(internal.RoleManager):
		q = q.Where("user_id = ? OR status IN ?", actor.ID, []internal.ExpenseStatus{
			internal.ExpenseStatusSubmitted,
			internal.ExpenseStatusReviewed,
			internal.ExpenseStatusManagerApproved,
			internal.ExpenseStatusManagerRejected,
		})
	case actor.HasRole(internal.RoleAccounts):
		q = q.Where("user_id = ? OR status IN ?", actor.ID, []internal.ExpenseStatus{
			internal.ExpenseStatusOwnerApproved,
			internal.ExpenseStatusPendingPayment,
			internal.ExpenseStatusPaid,
		})
	default:
		q = q.Where("user_id = ?", actor.ID)
	}

	var expenses []*expense.Expense
	err := q.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&expenses).Error
	return expenses, err
}

// UpdateDraft saves edits, guarded on the row still being a draft so a
// concurrent submission cannot be overwritten.
func (r *ExpenseRepository) UpdateDraft(exp *expense.Expense) error {
	exp.UpdatedAt = time.Now()
	res := r.db.Model(&expense.Expense{}).
		Where("id = ? AND status = ?", exp.ID, internal.ExpenseStatusDraft).
		Updates(map[string]interface{}{
			"title":        exp.Title,
			"description":  exp.Description,
			"amount":       exp.Amount,
			"category":     exp.Category,
			"expense_date": exp.ExpenseDate,
			"updated_at":   exp.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrStaleStatus
	}
	return nil
}

// Transition is the compare-and-swap on the status column. The WHERE clause
// carries the expected prior status; zero rows affected means a concurrent
// transition won the race (or the caller read a stale row) and the caller
// gets a typed stale-status error instead of a silent double-apply.
func (r *ExpenseRepository) Transition(id int64, from, to internal.ExpenseStatus, updates map[string]interface{}) error {
	if !from.CanTransitionTo(to) {
		return internal.ErrInvalidTransition
	}

	values := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range updates {
		values[k] = v
	}

	res := r.db.Model(&expense.Expense{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrStaleStatus
	}
	return nil
}

// Delete removes a draft row; attachments cascade at the schema level.
func (r *ExpenseRepository) Delete(id int64) error {
	res := r.db.Where("id = ? AND status = ?", id, internal.ExpenseStatusDraft).
		Delete(&expense.Expense{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrStaleStatus
	}
	return nil
}

func (r *ExpenseRepository) AppendLog(log *expense.StatusLog) error {
	return r.db.Create(log).Error
}

func (r *ExpenseRepository) LogsForExpense(expenseID int64) ([]*expense.StatusLog, error) {
	var logs []*expense.StatusLog
	err := r.db.Where("expense_id = ?", expenseID).
		Order("created_at ASC, id ASC").
		Find(&logs).Error
	return logs, err
}
