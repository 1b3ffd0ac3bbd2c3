package postgres

import (
	"time"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/expenseflow/expense-approval/internal/advance"
	"gorm.io/gorm"
)

// AdvanceRepository implements advance.Repository using GORM with the same
// role-scoped reads and status-guarded transitions as the expense store.
type AdvanceRepository struct {
	db *gorm.DB
}

func NewAdvanceRepository(db *gorm.DB) advance.Repository {
	return &AdvanceRepository{db: db}
}

func (r *AdvanceRepository) Create(req *advance.AdvanceRequest) error {
	return r.db.Create(req).Error
}

func (r *AdvanceRepository) GetByID(id int64) (*advance.AdvanceRequest, error) {
	var req advance.AdvanceRequest
	err := r.db.Where("id = ?", id).First(&req).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, advance.ErrAdvanceNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *AdvanceRepository) ListForRequester(requesterID int64, limit, offset int) ([]*advance.AdvanceRequest, error) {
	var requests []*advance.AdvanceRequest
	err := r.db.Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error
	return requests, err
}

// ListVisibleTo scopes the query by role: reviewers see every request,
// accounts sees approved and disbursed ones, everyone sees their own.
func (r *AdvanceRepository) ListVisibleTo(actor internal.Actor, limit, offset int) ([]*advance.AdvanceRequest, error) {
	q := r.db.Model(&advance.AdvanceRequest{})

	switch {
	case actor.HasAnyRole(internal.RoleManager, internal.RoleOwner):
		// reviewers read everything
	case actor.HasRole(internal.RoleAccounts):
		q = q.Where("requester_id = ? OR status IN ?", actor.ID, []internal.AdvanceStatus{
			internal.AdvanceStatusApproved,
			internal.AdvanceStatusDisbursed,
		})
	default:
		q = q.Where("requester_id = ?", actor.ID)
	}

	var requests []*advance.AdvanceRequest
	err := q.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error
	return requests, err
}

// Transition is the status compare-and-swap; zero rows affected means a
// concurrent transition won the race.
func (r *AdvanceRepository) Transition(id int64, from, to internal.AdvanceStatus, updates map[string]interface{}) error {
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

	res := r.db.Model(&advance.AdvanceRequest{}).
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
