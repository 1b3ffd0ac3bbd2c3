package profile

import (
	"log/slog"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/expenseflow/expense-approval/internal/policy"
)

type Repository interface {
	GetByUserID(userID int64) (*Profile, error)
	List(limit, offset int) ([]*Profile, error)
	Update(p *Profile) error
	DeleteUser(userID int64) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Get(actor internal.Actor, userID int64) (*Profile, error) {
	if !policy.CanReadProfile(actor, userID) {
		return nil, internal.ErrUnauthorized
	}
	return s.repo.GetByUserID(userID)
}

// List returns the directory. Staff only: employees have no reason to
// enumerate other accounts.
func (s *Service) List(actor internal.Actor, limit, offset int) ([]*Profile, error) {
	if !actor.IsStaff() {
		return nil, internal.ErrUnauthorized
	}
	return s.repo.List(limit, offset)
}

// UpdateOwn edits the caller's own profile.
func (s *Service) UpdateOwn(actor internal.Actor, dto UpdateProfileDTO) (*Profile, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByUserID(actor.ID)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		p.Name = *dto.Name
	}
	if dto.Phone != nil {
		p.Phone = *dto.Phone
	}
	if dto.Department != nil {
		p.Department = *dto.Department
	}

	if err := s.repo.Update(p); err != nil {
		s.logger.Error("profile update failed", "error", err, "user_id", actor.ID)
		return nil, internal.NewInternalError("failed to update profile", err)
	}
	return p, nil
}

// DeleteUser deactivates an account and removes its directory entry. Owner
// only; expense history stays for audit.
func (s *Service) DeleteUser(actor internal.Actor, userID int64) error {
	if !policy.CanDeleteProfile(actor) {
		return internal.ErrUnauthorized
	}
	if _, err := s.repo.GetByUserID(userID); err != nil {
		return err
	}
	if err := s.repo.DeleteUser(userID); err != nil {
		s.logger.Error("user deletion failed", "error", err, "user_id", userID)
		return internal.NewInternalError("failed to delete user", err)
	}

	s.logger.Info("user deleted", "user_id", userID, "deleted_by", actor.ID)
	return nil
}
