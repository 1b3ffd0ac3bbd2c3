package advance

import (
	"context"
	"log/slog"
	"time"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/expenseflow/expense-approval/internal/core/events"
	"github.com/expenseflow/expense-approval/internal/policy"
)

// Repository mirrors the expense repository contract: Transition is a
// status-guarded conditional update returning internal.ErrStaleStatus on a
// compare-and-swap miss.
type Repository interface {
	Create(req *AdvanceRequest) error
	GetByID(id int64) (*AdvanceRequest, error)
	ListForRequester(requesterID int64, limit, offset int) ([]*AdvanceRequest, error)
	ListVisibleTo(actor internal.Actor, limit, offset int) ([]*AdvanceRequest, error)
	Transition(id int64, from, to internal.AdvanceStatus, updates map[string]interface{}) error
}

type Service struct {
	repo   Repository
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo Repository, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{repo: repo, bus: bus, logger: logger}
}

// Create opens a pending advance request owned by the actor.
func (s *Service) Create(actor internal.Actor, dto CreateAdvanceDTO) (*AdvanceRequest, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("advance validation failed", "error", err, "user_id", actor.ID)
		return nil, err
	}

	req := &AdvanceRequest{
		RequesterID: actor.ID,
		Amount:      dto.Amount,
		Reason:      dto.Reason,
		Status:      internal.AdvanceStatusPending,
	}
	if err := s.repo.Create(req); err != nil {
		s.logger.Error("failed to create advance request", "error", err, "user_id", actor.ID)
		return nil, internal.NewInternalError("failed to create advance request", err)
	}

	s.logger.Info("advance request created",
		"advance_id", req.ID, "user_id", actor.ID, "amount", req.Amount)
	return req, nil
}

func (s *Service) Get(actor internal.Actor, id int64) (*AdvanceRequest, error) {
	req, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrAdvanceNotFound
	}
	if !policy.CanReadAdvance(actor, req.RequesterID, req.Status) {
		return nil, internal.ErrUnauthorized
	}
	return req, nil
}

func (s *Service) List(actor internal.Actor, limit, offset int) ([]*AdvanceRequest, error) {
	return s.repo.ListVisibleTo(actor, limit, offset)
}

func (s *Service) ListOwn(actor internal.Actor, limit, offset int) ([]*AdvanceRequest, error) {
	return s.repo.ListForRequester(actor.ID, limit, offset)
}

// Review settles a pending request: manager or owner approves or rejects.
func (s *Service) Review(actor internal.Actor, id int64, dto ReviewDTO) (*AdvanceRequest, error) {
	if !actor.HasAnyRole(internal.RoleManager, internal.RoleOwner) {
		s.logger.Warn("advance review denied: missing role", "advance_id", id, "actor_id", actor.ID)
		return nil, internal.ErrUnauthorized
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	req, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrAdvanceNotFound
	}
	if !policy.CanReviewAdvance(actor, req.Status) {
		return nil, internal.ErrInvalidTransition
	}

	now := time.Now()
	updates := map[string]interface{}{
		"reviewed_by": actor.ID,
		"reviewed_at": now,
	}

	target := internal.AdvanceStatusApproved
	if dto.Action == ReviewActionReject {
		target = internal.AdvanceStatusRejected
		updates["rejection_reason"] = dto.Reason
	}

	if err := s.repo.Transition(id, internal.AdvanceStatusPending, target, updates); err != nil {
		return nil, err
	}

	s.publish(req, target, actor.ID)
	s.logger.Info("advance request reviewed",
		"advance_id", id, "status", target, "reviewer_id", actor.ID)
	return s.reload(req, id)
}

// Disburse records the payout of an approved request by accounts.
func (s *Service) Disburse(actor internal.Actor, id int64, dto DisburseDTO) (*AdvanceRequest, error) {
	if !actor.HasRole(internal.RoleAccounts) {
		s.logger.Warn("advance disbursement denied: missing accounts role",
			"advance_id", id, "actor_id", actor.ID)
		return nil, internal.ErrUnauthorized
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	req, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrAdvanceNotFound
	}
	if !policy.CanDisburseAdvance(actor, req.Status) {
		return nil, internal.ErrInvalidTransition
	}

	now := time.Now()
	updates := map[string]interface{}{
		"disbursed_by":      actor.ID,
		"disbursed_at":      now,
		"payment_reference": dto.PaymentReference,
	}
	if err := s.repo.Transition(id, internal.AdvanceStatusApproved, internal.AdvanceStatusDisbursed, updates); err != nil {
		return nil, err
	}

	s.publish(req, internal.AdvanceStatusDisbursed, actor.ID)
	s.logger.Info("advance request disbursed",
		"advance_id", id, "disburser_id", actor.ID, "reference", dto.PaymentReference)
	return s.reload(req, id)
}

func (s *Service) reload(prev *AdvanceRequest, id int64) (*AdvanceRequest, error) {
	req, err := s.repo.GetByID(id)
	if err != nil {
		// The transition committed; return the stale copy rather than an error.
		s.logger.Warn("failed to reload advance after transition", "advance_id", id, "error", err)
		return prev, nil
	}
	return req, nil
}

func (s *Service) publish(req *AdvanceRequest, status internal.AdvanceStatus, actorID int64) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(context.Background(), events.AdvanceStatusChanged{
		AdvanceID:   req.ID,
		RequesterID: req.RequesterID,
		Status:      status,
		ActorID:     actorID,
		At:          time.Now(),
	})
}
