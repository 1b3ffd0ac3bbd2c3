package attachment

import (
	"log/slog"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/expenseflow/expense-approval/internal/policy"
)

// Service stores attachment blobs and their metadata rows. Callers pass the
// parent expense's ExpenseRef; visibility and category rules come from the
// policy engine.
type Service struct {
	repo    Repository
	storage Storage
	logger  *slog.Logger
}

func NewService(repo Repository, storage Storage, logger *slog.Logger) *Service {
	return &Service{repo: repo, storage: storage, logger: logger}
}

// SaveBills persists every upload before the caller advances the expense
// status. The first failure aborts the whole batch: already-stored blobs are
// removed so a retried submission starts clean.
func (s *Service) SaveBills(actor internal.Actor, ref ExpenseRef, uploads []Upload) error {
	if len(uploads) == 0 {
		return nil
	}
	if !policy.CanAttachFile(actor, ref.OwnerID, CategoryBill) {
		return internal.ErrUnauthorized
	}

	stored := make([]string, 0, len(uploads))
	created := make([]*ExpenseFile, 0, len(uploads))
	for _, up := range uploads {
		path, err := s.storage.Store(ref.OwnerID, ref.ID, up)
		if err != nil {
			s.rollback(stored, created)
			s.logger.Error("bill upload failed, batch aborted",
				"expense_id", ref.ID, "file", up.Name, "error", err)
			return err
		}
		stored = append(stored, path)

		file := &ExpenseFile{
			ExpenseID:   ref.ID,
			FileName:    up.Name,
			FilePath:    path,
			ContentType: up.ContentType,
			SizeBytes:   up.Size,
			UploaderID:  actor.ID,
			Category:    CategoryBill,
		}
		if err := s.repo.Create(file); err != nil {
			s.rollback(stored, created)
			s.logger.Error("bill metadata insert failed, batch aborted",
				"expense_id", ref.ID, "file", up.Name, "error", err)
			return internal.NewExternalError("failed to record attachment", err)
		}
		created = append(created, file)
	}

	s.logger.Info("bills attached", "expense_id", ref.ID, "count", len(uploads))
	return nil
}

// SavePaymentProof attaches accounts' evidence of disbursement.
func (s *Service) SavePaymentProof(actor internal.Actor, ref ExpenseRef, up Upload) (*ExpenseFile, error) {
	if !policy.CanAttachFile(actor, ref.OwnerID, CategoryPaymentProof) {
		return nil, internal.ErrUnauthorized
	}

	path, err := s.storage.Store(ref.OwnerID, ref.ID, up)
	if err != nil {
		s.logger.Error("payment proof upload failed", "expense_id", ref.ID, "error", err)
		return nil, err
	}

	file := &ExpenseFile{
		ExpenseID:   ref.ID,
		FileName:    up.Name,
		FilePath:    path,
		ContentType: up.ContentType,
		SizeBytes:   up.Size,
		UploaderID:  actor.ID,
		Category:    CategoryPaymentProof,
	}
	if err := s.repo.Create(file); err != nil {
		s.rollback([]string{path}, nil)
		return nil, internal.NewExternalError("failed to record attachment", err)
	}
	return file, nil
}

// ListForExpense returns attachment metadata; visibility derives from the
// parent expense.
func (s *Service) ListForExpense(actor internal.Actor, ref ExpenseRef) ([]*ExpenseFile, error) {
	if !policy.CanReadExpenseFile(actor, ref.OwnerID, ref.Status) {
		return nil, internal.ErrUnauthorized
	}
	return s.repo.ListForExpense(ref.ID)
}

// DeleteForExpense removes blobs and metadata when a draft is deleted.
func (s *Service) DeleteForExpense(expenseID int64) error {
	files, err := s.repo.ListForExpense(expenseID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := s.storage.Remove(f.FilePath); err != nil {
			s.logger.Warn("failed to remove stored file", "path", f.FilePath, "error", err)
		}
	}
	return s.repo.DeleteForExpense(expenseID)
}

// rollback undoes a partial batch: stored blobs and their metadata rows both
// go, so the expense never carries file rows pointing at missing blobs.
func (s *Service) rollback(paths []string, files []*ExpenseFile) {
	for _, p := range paths {
		if err := s.storage.Remove(p); err != nil {
			s.logger.Warn("rollback: failed to remove stored file", "path", p, "error", err)
		}
	}
	for _, f := range files {
		if err := s.repo.Delete(f.ID); err != nil {
			s.logger.Warn("rollback: failed to remove attachment row", "file_id", f.ID, "error", err)
		}
	}
}
