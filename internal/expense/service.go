package expense

import (
	"context"
	"log/slog"
	"time"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/expenseflow/expense-approval/internal/attachment"
	"github.com/expenseflow/expense-approval/internal/core/events"
	"github.com/expenseflow/expense-approval/internal/policy"
)

// Repository is the data access contract for expenses. Transition is a
// compare-and-swap: the update is guarded on the expected prior status and
// must return internal.ErrStaleStatus when it matches zero rows.
type Repository interface {
	Create(exp *Expense) error
	GetByID(id int64) (*Expense, error)
	ListForOwner(ownerID int64, limit, offset int) ([]*Expense, error)
	ListVisibleTo(actor internal.Actor, limit, offset int) ([]*Expense, error)
	UpdateDraft(exp *Expense) error
	Transition(id int64, from, to internal.ExpenseStatus, updates map[string]interface{}) error
	Delete(id int64) error
	AppendLog(log *StatusLog) error
	LogsForExpense(expenseID int64) ([]*StatusLog, error)
}

// Attachments is the collaborator persisting bills before a submission may
// advance. A failed batch must leave no stored files behind.
type Attachments interface {
	SaveBills(actor internal.Actor, ref attachment.ExpenseRef, uploads []attachment.Upload) error
	DeleteForExpense(expenseID int64) error
}

// Service drives the expense lifecycle. Every transition checks the actor's
// role first (Unauthorized) and the row status second (InvalidTransition), so
// the two failure modes stay distinguishable even though the storage layer
// conflates them as zero rows affected.
type Service struct {
	repo        Repository
	attachments Attachments
	bus         *events.EventBus
	logger      *slog.Logger
}

func NewService(repo Repository, attachments Attachments, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		attachments: attachments,
		bus:         bus,
		logger:      logger,
	}
}

// CreateDraft creates an expense in draft owned by the actor.
func (s *Service) CreateDraft(actor internal.Actor, dto CreateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("expense validation failed", "error", err, "user_id", actor.ID)
		return nil, err
	}

	exp := &Expense{
		UserID:      actor.ID,
		Title:       dto.Title,
		Description: dto.Description,
		Amount:      dto.Amount,
		Category:    dto.Category,
		ExpenseDate: dto.ExpenseDate,
		Status:      internal.ExpenseStatusDraft,
	}

	if err := s.repo.Create(exp); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", actor.ID)
		return nil, internal.NewInternalError("failed to create expense", err)
	}

	s.appendLog(exp.ID, internal.ExpenseStatusDraft, actor.ID, "draft created")

	s.logger.Info("expense draft created",
		"expense_id", exp.ID, "user_id", actor.ID, "amount", exp.Amount)
	return exp, nil
}

// GetExpense returns one expense if the policy matrix allows the actor to
// see it.
func (s *Service) GetExpense(actor internal.Actor, id int64) (*Expense, error) {
	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrExpenseNotFound
	}
	if !policy.CanReadExpense(actor, exp.UserID, exp.Status) {
		s.logger.Warn("expense read denied", "expense_id", id, "actor_id", actor.ID)
		return nil, internal.ErrUnauthorized
	}
	return exp, nil
}

// ListExpenses returns the rows visible to the actor under the policy
// matrix; the scoping happens in the repository query itself.
func (s *Service) ListExpenses(actor internal.Actor, limit, offset int) ([]*Expense, error) {
	return s.repo.ListVisibleTo(actor, limit, offset)
}

// ListOwnExpenses returns the actor's own rows, any status.
func (s *Service) ListOwnExpenses(actor internal.Actor, limit, offset int) ([]*Expense, error) {
	return s.repo.ListForOwner(actor.ID, limit, offset)
}

// EditDraft mutates a draft in place. No status change, no log entry.
func (s *Service) EditDraft(actor internal.Actor, id int64, dto UpdateDraftDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrExpenseNotFound
	}
	if exp.UserID != actor.ID {
		return nil, internal.ErrUnauthorized
	}
	if !exp.IsDraft() {
		return nil, internal.ErrInvalidTransition
	}

	if dto.Title != nil {
		exp.Title = *dto.Title
	}
	if dto.Description != nil {
		exp.Description = *dto.Description
	}
	if dto.Amount != nil {
		exp.Amount = *dto.Amount
	}
	if dto.Category != nil {
		exp.Category = *dto.Category
	}
	if dto.ExpenseDate != nil {
		exp.ExpenseDate = *dto.ExpenseDate
	}

	if err := s.repo.UpdateDraft(exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// DeleteDraft removes a draft and its attachments.
func (s *Service) DeleteDraft(actor internal.Actor, id int64) error {
	exp, err := s.repo.GetByID(id)
	if err != nil {
		return ErrExpenseNotFound
	}
	if exp.UserID != actor.ID {
		return internal.ErrUnauthorized
	}
	if !exp.IsDraft() {
		return internal.ErrInvalidTransition
	}

	if err := s.attachments.DeleteForExpense(id); err != nil {
		s.logger.Error("failed to delete attachments", "expense_id", id, "error", err)
		return internal.NewExternalError("failed to delete attachments", err)
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.logger.Info("draft deleted", "expense_id", id, "user_id", actor.ID)
	return nil
}

// Submit persists any new bills first and only then advances draft →
// submitted. An upload failure aborts before the status is touched, so a
// half-uploaded submission can never pass a later precondition check.
func (s *Service) Submit(actor internal.Actor, id int64, uploads []attachment.Upload) (*Expense, error) {
	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrExpenseNotFound
	}
	if exp.UserID != actor.ID {
		return nil, internal.ErrUnauthorized
	}
	if !exp.IsDraft() {
		return nil, internal.ErrInvalidTransition
	}

	dto := CreateExpenseDTO{
		Title:       exp.Title,
		Description: exp.Description,
		Amount:      exp.Amount,
		Category:    exp.Category,
		ExpenseDate: exp.ExpenseDate,
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	ref := attachment.ExpenseRef{ID: exp.ID, OwnerID: exp.UserID, Status: exp.Status}
	if err := s.attachments.SaveBills(actor, ref, uploads); err != nil {
		s.logger.Error("submission aborted: bill upload failed",
			"expense_id", id, "user_id", actor.ID, "error", err)
		return nil, err
	}

	now := time.Now()
	err = s.repo.Transition(id, internal.ExpenseStatusDraft, internal.ExpenseStatusSubmitted,
		map[string]interface{}{"submitted_at": now})
	if err != nil {
		return nil, err
	}

	s.finishTransition(actor, exp, internal.ExpenseStatusSubmitted, "submitted for approval")
	return s.reload(exp, id)
}

// MarkReviewed is the manager triage step: submitted → reviewed. Transition
// rights from reviewed are identical to submitted.
func (s *Service) MarkReviewed(actor internal.Actor, id int64) (*Expense, error) {
	if !actor.HasRole(internal.RoleManager) {
		return nil, internal.ErrUnauthorized
	}

	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrExpenseNotFound
	}
	if exp.Status != internal.ExpenseStatusSubmitted {
		return nil, internal.ErrInvalidTransition
	}

	err = s.repo.Transition(id, internal.ExpenseStatusSubmitted, internal.ExpenseStatusReviewed, nil)
	if err != nil {
		return nil, err
	}

	s.finishTransition(actor, exp, internal.ExpenseStatusReviewed, "marked reviewed")
	return s.reload(exp, id)
}

// ManagerReview settles the manager stage: approve or reject with a reason.
func (s *Service) ManagerReview(actor internal.Actor, id int64, dto ReviewDTO) (*Expense, error) {
	if !actor.HasRole(internal.RoleManager) {
		s.logger.Warn("manager review denied: missing role", "expense_id", id, "actor_id", actor.ID)
		return nil, internal.ErrUnauthorized
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrExpenseNotFound
	}
	if !exp.AwaitsManager() {
		return nil, internal.ErrInvalidTransition
	}

	now := time.Now()
	var target internal.ExpenseStatus
	var updates map[string]interface{}
	var note string

	if dto.Action == ReviewActionApprove {
		target = internal.ExpenseStatusManagerApproved
		updates = map[string]interface{}{
			"manager_approved_by": actor.ID,
			"manager_approved_at": now,
		}
		note = "approved by manager"
	} else {
		target = internal.ExpenseStatusManagerRejected
		updates = map[string]interface{}{
			"manager_rejection_reason": dto.Reason,
		}
		note = "rejected by manager: " + dto.Reason
	}

	if err := s.repo.Transition(id, exp.Status, target, updates); err != nil {
		return nil, err
	}

	s.finishTransition(actor, exp, target, note)
	return s.reload(exp, id)
}

// OwnerReview settles the owner stage, symmetric to the manager stage.
func (s *Service) OwnerReview(actor internal.Actor, id int64, dto ReviewDTO) (*Expense, error) {
	if !actor.HasRole(internal.RoleOwner) {
		s.logger.Warn("owner review denied: missing role", "expense_id", id, "actor_id", actor.ID)
		return nil, internal.ErrUnauthorized
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrExpenseNotFound
	}
	if !exp.AwaitsOwner() {
		return nil, internal.ErrInvalidTransition
	}

	now := time.Now()
	var target internal.ExpenseStatus
	var updates map[string]interface{}
	var note string

	if dto.Action == ReviewActionApprove {
		target = internal.ExpenseStatusOwnerApproved
		updates = map[string]interface{}{
			"owner_approved_by": actor.ID,
			"owner_approved_at": now,
		}
		note = "approved by owner"
	} else {
		target = internal.ExpenseStatusOwnerRejected
		updates = map[string]interface{}{
			"owner_rejection_reason": dto.Reason,
		}
		note = "rejected by owner: " + dto.Reason
	}

	if err := s.repo.Transition(id, internal.ExpenseStatusManagerApproved, target, updates); err != nil {
		return nil, err
	}

	s.finishTransition(actor, exp, target, note)
	return s.reload(exp, id)
}

// MarkPendingPayment lets accounts queue an owner-approved expense for
// disbursement without paying it yet.
func (s *Service) MarkPendingPayment(actor internal.Actor, id int64) (*Expense, error) {
	if !actor.HasRole(internal.RoleAccounts) {
		return nil, internal.ErrUnauthorized
	}

	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrExpenseNotFound
	}
	if exp.Status != internal.ExpenseStatusOwnerApproved {
		return nil, internal.ErrInvalidTransition
	}

	err = s.repo.Transition(id, internal.ExpenseStatusOwnerApproved, internal.ExpenseStatusPendingPayment, nil)
	if err != nil {
		return nil, err
	}

	s.finishTransition(actor, exp, internal.ExpenseStatusPendingPayment, "queued for payment")
	return s.reload(exp, id)
}

// Pay records the disbursement and closes the pipeline.
func (s *Service) Pay(actor internal.Actor, id int64, dto PayDTO) (*Expense, error) {
	if !actor.HasRole(internal.RoleAccounts) {
		s.logger.Warn("payment denied: missing accounts role", "expense_id", id, "actor_id", actor.ID)
		return nil, internal.ErrUnauthorized
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrExpenseNotFound
	}
	if !exp.AwaitsPayment() {
		return nil, internal.ErrInvalidTransition
	}

	now := time.Now()
	updates := map[string]interface{}{
		"paid_by":           actor.ID,
		"paid_at":           now,
		"payment_reference": dto.PaymentReference,
	}
	if err := s.repo.Transition(id, exp.Status, internal.ExpenseStatusPaid, updates); err != nil {
		return nil, err
	}

	s.finishTransition(actor, exp, internal.ExpenseStatusPaid, "paid, reference "+dto.PaymentReference)
	return s.reload(exp, id)
}

// Logs returns the audit trail, visible iff the parent expense is.
func (s *Service) Logs(actor internal.Actor, id int64) ([]*StatusLog, error) {
	exp, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrExpenseNotFound
	}
	if !policy.CanReadExpense(actor, exp.UserID, exp.Status) {
		return nil, internal.ErrUnauthorized
	}
	return s.repo.LogsForExpense(id)
}

// Ref exposes the expense slice the attachment layer needs, after a
// visibility check.
func (s *Service) Ref(actor internal.Actor, id int64) (attachment.ExpenseRef, error) {
	exp, err := s.repo.GetByID(id)
	if err != nil {
		return attachment.ExpenseRef{}, ErrExpenseNotFound
	}
	if !policy.CanReadExpense(actor, exp.UserID, exp.Status) {
		return attachment.ExpenseRef{}, internal.ErrUnauthorized
	}
	return attachment.ExpenseRef{ID: exp.ID, OwnerID: exp.UserID, Status: exp.Status}, nil
}

// finishTransition appends the audit row and publishes the status event.
// Both are non-fatal: the transition has already committed.
func (s *Service) finishTransition(actor internal.Actor, exp *Expense, status internal.ExpenseStatus, note string) {
	s.appendLog(exp.ID, status, actor.ID, note)

	if s.bus != nil {
		s.bus.Publish(context.Background(), events.ExpenseStatusChanged{
			ExpenseID: exp.ID,
			OwnerID:   exp.UserID,
			Status:    status,
			ActorID:   actor.ID,
			Title:     exp.Title,
			At:        time.Now(),
		})
	}

	s.logger.Info("expense status changed",
		"expense_id", exp.ID, "status", status, "actor_id", actor.ID)
}

func (s *Service) appendLog(expenseID int64, status internal.ExpenseStatus, actorID int64, note string) {
	err := s.repo.AppendLog(&StatusLog{
		ExpenseID: expenseID,
		Status:    status,
		ActorID:   actorID,
		Note:      note,
	})
	if err != nil {
		// Audit trail, not a gate: log and move on.
		s.logger.Error("failed to append status log",
			"expense_id", expenseID, "status", status, "error", err)
	}
}

func (s *Service) reload(prev *Expense, id int64) (*Expense, error) {
	exp, err := s.repo.GetByID(id)
	if err != nil {
		// The transition committed; return the stale copy rather than an error.
		s.logger.Warn("failed to reload expense after transition", "expense_id", id, "error", err)
		return prev, nil
	}
	return exp, nil
}
