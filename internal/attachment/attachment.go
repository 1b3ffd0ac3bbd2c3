package attachment

import (
	"io"
	"time"

	"github.com/expenseflow/expense-approval/internal"
)

// Category separates employee receipts from accounts' payment evidence. The
// policy engine binds each category to the role allowed to attach it.
const (
	CategoryBill         = "bill"
	CategoryPaymentProof = "payment_proof"
)

// ExpenseFile is the stored metadata for one attachment. Rows are owned by
// the parent expense and cascade-deleted with it.
type ExpenseFile struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	ExpenseID   int64     `json:"expense_id" gorm:"column:expense_id;not null;index"`
	FileName    string    `json:"file_name" gorm:"column:file_name;not null"`
	FilePath    string    `json:"file_path" gorm:"column:file_path;not null"`
	ContentType string    `json:"content_type" gorm:"column:content_type"`
	SizeBytes   int64     `json:"size_bytes" gorm:"column:size_bytes"`
	UploaderID  int64     `json:"uploader_id" gorm:"column:uploader_id;not null"`
	Category    string    `json:"category" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
}

func (ExpenseFile) TableName() string {
	return "expense_files"
}

// Upload is one incoming file from a multipart request.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// ExpenseRef is the slice of the parent expense the attachment layer needs
// for its policy checks; the expense layer supplies it.
type ExpenseRef struct {
	ID      int64
	OwnerID int64
	Status  internal.ExpenseStatus
}

// Storage is the external blob-store collaborator. Implementations must
// generate a distinct object key per attempt so retries never collide, and
// must reject keys escaping the owner's namespace.
type Storage interface {
	Store(ownerID, expenseID int64, upload Upload) (path string, err error)
	Remove(path string) error
}

// Repository is the metadata store for attachments.
type Repository interface {
	Create(file *ExpenseFile) error
	Delete(fileID int64) error
	ListForExpense(expenseID int64) ([]*ExpenseFile, error)
	DeleteForExpense(expenseID int64) error
}

var (
	ErrFileNotFound = internal.NewNotFoundError("attachment not found", internal.ErrCodeValidationFailed)
	ErrEmptyUpload  = internal.NewValidationError("uploaded file is empty", internal.ErrCodeValidationFailed)
	ErrBadFileName  = internal.NewValidationError("file name is not allowed", internal.ErrCodeValidationFailed)
	ErrStoreFailed  = internal.NewExternalError("file storage is unavailable", nil)
)
