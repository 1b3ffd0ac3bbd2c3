package postgres

import (
	"github.com/expenseflow/expense-approval/internal/attachment"
	"gorm.io/gorm"
)

type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) attachment.Repository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Create(file *attachment.ExpenseFile) error {
	return r.db.Create(file).Error
}

func (r *AttachmentRepository) Delete(fileID int64) error {
	return r.db.Delete(&attachment.ExpenseFile{}, fileID).Error
}

func (r *AttachmentRepository) ListForExpense(expenseID int64) ([]*attachment.ExpenseFile, error) {
	var files []*attachment.ExpenseFile
	err := r.db.Where("expense_id = ?", expenseID).
		Order("created_at ASC").
		Find(&files).Error
	return files, err
}

func (r *AttachmentRepository) DeleteForExpense(expenseID int64) error {
	return r.db.Where("expense_id = ?", expenseID).Delete(&attachment.ExpenseFile{}).Error
}
