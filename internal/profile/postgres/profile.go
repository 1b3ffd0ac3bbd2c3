package postgres

import (
	"time"

	"github.com/expenseflow/expense-approval/internal/profile"
	"gorm.io/gorm"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) profile.Repository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByUserID(userID int64) (*profile.Profile, error) {
	var p profile.Profile
	err := r.db.Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, profile.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepository) List(limit, offset int) ([]*profile.Profile, error) {
	var profiles []*profile.Profile
	err := r.db.Order("name ASC").
		Limit(limit).
		Offset(offset).
		Find(&profiles).Error
	return profiles, err
}

func (r *ProfileRepository) Update(p *profile.Profile) error {
	p.UpdatedAt = time.Now()
	return r.db.Model(&profile.Profile{}).
		Where("user_id = ?", p.UserID).
		Updates(map[string]interface{}{
			"name":       p.Name,
			"phone":      p.Phone,
			"department": p.Department,
			"updated_at": p.UpdatedAt,
		}).Error
}

// DeleteUser removes the directory entry, role grants, and deactivates the
// credentials row in one transaction. Expense rows stay for audit.
func (r *ProfileRepository) DeleteUser(userID int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&profile.Profile{}).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM user_roles WHERE user_id = ?`, userID).Error; err != nil {
			return err
		}
		return tx.Exec(
			`UPDATE users SET is_active = false, updated_at = ? WHERE id = ?`,
			time.Now(), userID,
		).Error
	})
}
