package profile

import (
	"time"

	"github.com/expenseflow/expense-approval/internal"
)

// Profile is the directory entry shown in approval queues and dashboards.
// Credentials live in the auth package; this row is one-to-one with a user.
type Profile struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	UserID     int64     `json:"user_id" gorm:"column:user_id;uniqueIndex;not null"`
	Name       string    `json:"name" gorm:"not null"`
	Phone      string    `json:"phone,omitempty"`
	Department string    `json:"department,omitempty"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

var ErrProfileNotFound = internal.NewNotFoundError("profile not found", internal.ErrCodeProfileNotFound)
