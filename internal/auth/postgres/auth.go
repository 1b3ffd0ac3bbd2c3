package postgres

import (
	"time"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/expenseflow/expense-approval/internal/auth"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByEmail(email string) (*auth.User, error) {
	var user auth.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetByID(userID int64) (*auth.User, error) {
	var user auth.User
	err := r.db.Where("id = ?", userID).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser writes the credentials row, its profile row, and the initial
// employee role grant in one transaction.
func (r *Repository) CreateUser(user *auth.User, name, department string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Exec(
			`INSERT INTO profiles (user_id, name, department, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			user.ID, name, department, now, now,
		).Error; err != nil {
			return err
		}

		return tx.Create(&auth.UserRole{
			UserID:    user.ID,
			Role:      internal.RoleEmployee,
			CreatedAt: now,
		}).Error
	})
}

func (r *Repository) RolesForUser(userID int64) ([]internal.Role, error) {
	var rows []auth.UserRole
	if err := r.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}

	roles := make([]internal.Role, 0, len(rows))
	for _, row := range rows {
		if role, ok := internal.ParseRole(string(row.Role)); ok {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

// GrantRole is idempotent: re-granting an already held role is a no-op.
func (r *Repository) GrantRole(userID int64, role internal.Role, grantedBy int64) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&auth.UserRole{
		UserID:    userID,
		Role:      role,
		GrantedBy: &grantedBy,
		CreatedAt: time.Now(),
	}).Error
}

func (r *Repository) RevokeRole(userID int64, role internal.Role) error {
	return r.db.Where("user_id = ? AND role = ?", userID, role).
		Delete(&auth.UserRole{}).Error
}
