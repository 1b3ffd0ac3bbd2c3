package notification

import (
	"time"

	"github.com/expenseflow/expense-approval/internal"
)

// Notification is an in-app message row addressed to exactly one user.
type Notification struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"column:user_id;not null;index"`
	Kind      string    `json:"kind" gorm:"not null"`
	Subject   string    `json:"subject" gorm:"not null"`
	Body      string    `json:"body"`
	IsRead    bool      `json:"is_read" gorm:"column:is_read;default:false;index"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

const (
	KindExpenseStatus = "expense_status"
	KindAdvanceStatus = "advance_status"
)

var ErrNotificationNotFound = internal.NewNotFoundError("notification not found", internal.ErrCodeNotificationNotFound)
