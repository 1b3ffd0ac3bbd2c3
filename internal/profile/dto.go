package profile

import (
	"strings"

	"github.com/expenseflow/expense-approval/internal"
)

// UpdateProfileDTO edits the caller's own directory entry. Pointer fields
// distinguish "leave unchanged" from "set empty".
type UpdateProfileDTO struct {
	Name       *string `json:"name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Department *string `json:"department,omitempty"`
}

func (dto UpdateProfileDTO) Validate() error {
	if dto.Name != nil && strings.TrimSpace(*dto.Name) == "" {
		return internal.NewValidationError("name cannot be empty", internal.ErrCodeValidationFailed)
	}
	return nil
}
