package expense

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/expenseflow/expense-approval/internal/attachment"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestExpense(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Expense Module Suite")
}

// mockRepository keeps expenses in memory and honors the compare-and-swap
// contract of the real store.
type mockRepository struct {
	expenses map[int64]*Expense
	logs     []*StatusLog
	nextID   int64

	failLogs bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		expenses: make(map[int64]*Expense),
		nextID:   1,
	}
}

func (m *mockRepository) Create(exp *Expense) error {
	exp.ID = m.nextID
	m.nextID++
	exp.CreatedAt = time.Now()
	exp.UpdatedAt = exp.CreatedAt
	m.expenses[exp.ID] = exp
	return nil
}

func (m *mockRepository) GetByID(id int64) (*Expense, error) {
	exp, ok := m.expenses[id]
	if !ok {
		return nil, ErrExpenseNotFound
	}
	cp := *exp
	return &cp, nil
}

func (m *mockRepository) ListForOwner(ownerID int64, limit, offset int) ([]*Expense, error) {
	var out []*Expense
	for _, exp := range m.expenses {
		if exp.UserID == ownerID {
			cp := *exp
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepository) ListVisibleTo(actor internal.Actor, limit, offset int) ([]*Expense, error) {
	var out []*Expense
	for _, exp := range m.expenses {
		cp := *exp
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockRepository) UpdateDraft(exp *Expense) error {
	cur, ok := m.expenses[exp.ID]
	if !ok || cur.Status != internal.ExpenseStatusDraft {
		return internal.ErrStaleStatus
	}
	cp := *exp
	m.expenses[exp.ID] = &cp
	return nil
}

func (m *mockRepository) Transition(id int64, from, to internal.ExpenseStatus, updates map[string]interface{}) error {
	if !from.CanTransitionTo(to) {
		return internal.ErrInvalidTransition
	}
	cur, ok := m.expenses[id]
	if !ok || cur.Status != from {
		return internal.ErrStaleStatus
	}
	cur.Status = to
	if ref, ok := updates["payment_reference"].(string); ok {
		cur.PaymentReference = &ref
	}
	if reason, ok := updates["manager_rejection_reason"].(string); ok {
		cur.ManagerRejectionReason = &reason
	}
	if reason, ok := updates["owner_rejection_reason"].(string); ok {
		cur.OwnerRejectionReason = &reason
	}
	if by, ok := updates["manager_approved_by"].(int64); ok {
		cur.ManagerApprovedBy = &by
	}
	if by, ok := updates["owner_approved_by"].(int64); ok {
		cur.OwnerApprovedBy = &by
	}
	if by, ok := updates["paid_by"].(int64); ok {
		cur.PaidBy = &by
	}
	cur.UpdatedAt = time.Now()
	return nil
}

func (m *mockRepository) Delete(id int64) error {
	cur, ok := m.expenses[id]
	if !ok || cur.Status != internal.ExpenseStatusDraft {
		return internal.ErrStaleStatus
	}
	delete(m.expenses, id)
	return nil
}

func (m *mockRepository) AppendLog(log *StatusLog) error {
	if m.failLogs {
		return errors.New("log insert failed")
	}
	log.CreatedAt = time.Now()
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockRepository) LogsForExpense(expenseID int64) ([]*StatusLog, error) {
	var out []*StatusLog
	for _, l := range m.logs {
		if l.ExpenseID == expenseID {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockAttachments struct {
	savedBills int
	failSave   bool
	deleted    []int64
}

func (m *mockAttachments) SaveBills(actor internal.Actor, ref attachment.ExpenseRef, uploads []attachment.Upload) error {
	if m.failSave {
		return internal.NewExternalError("storage unavailable", errors.New("disk full"))
	}
	m.savedBills += len(uploads)
	return nil
}

func (m *mockAttachments) DeleteForExpense(expenseID int64) error {
	m.deleted = append(m.deleted, expenseID)
	return nil
}

var _ = ginkgo.Describe("ExpenseService", func() {
	var (
		service *Service
		repo    *mockRepository
		files   *mockAttachments

		employee = internal.Actor{ID: 1, Email: "employee@mail.com", Roles: []internal.Role{internal.RoleEmployee}}
		manager  = internal.Actor{ID: 2, Email: "manager@mail.com", Roles: []internal.Role{internal.RoleEmployee, internal.RoleManager}}
		owner    = internal.Actor{ID: 3, Email: "owner@mail.com", Roles: []internal.Role{internal.RoleOwner}}
		accounts = internal.Actor{ID: 4, Email: "accounts@mail.com", Roles: []internal.Role{internal.RoleAccounts}}
	)

	newDraft := func() *Expense {
		exp, err := service.CreateDraft(employee, CreateExpenseDTO{
			Title:       "Team lunch",
			Description: "Client meeting lunch",
			Amount:      45000,
			Category:    "Food & Dining",
			ExpenseDate: time.Now().Add(-24 * time.Hour),
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return exp
	}

	submitted := func() *Expense {
		exp := newDraft()
		out, err := service.Submit(employee, exp.ID, nil)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return out
	}

	ginkgo.BeforeEach(func() {
		repo = newMockRepository()
		files = &mockAttachments{}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = NewService(repo, files, nil, logger)
	})

	ginkgo.Describe("CreateDraft", func() {
		ginkgo.It("creates a draft owned by the actor and logs it", func() {
			exp := newDraft()

			gomega.Expect(exp.Status).To(gomega.Equal(internal.ExpenseStatusDraft))
			gomega.Expect(exp.UserID).To(gomega.Equal(employee.ID))

			logs, err := service.Logs(employee, exp.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(logs).To(gomega.HaveLen(1))
			gomega.Expect(logs[0].Status).To(gomega.Equal(internal.ExpenseStatusDraft))
			gomega.Expect(logs[0].ActorID).To(gomega.Equal(employee.ID))
		})

		ginkgo.It("rejects a future expense date", func() {
			_, err := service.CreateDraft(employee, CreateExpenseDTO{
				Title:       "Time travel",
				Amount:      100,
				Category:    "Travel",
				ExpenseDate: time.Now().Add(48 * time.Hour),
			})
			gomega.Expect(err).To(gomega.HaveOccurred())
		})

		ginkgo.It("rejects a non-positive amount", func() {
			_, err := service.CreateDraft(employee, CreateExpenseDTO{
				Title:       "Free lunch",
				Amount:      0,
				Category:    "Food & Dining",
				ExpenseDate: time.Now(),
			})
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("EditDraft", func() {
		ginkgo.It("updates fields without writing a log entry", func() {
			exp := newDraft()
			before := len(repo.logs)

			title := "Team lunch (updated)"
			amount := int64(52000)
			out, err := service.EditDraft(employee, exp.ID, UpdateDraftDTO{Title: &title, Amount: &amount})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(out.Title).To(gomega.Equal(title))
			gomega.Expect(out.Amount).To(gomega.Equal(amount))
			gomega.Expect(repo.logs).To(gomega.HaveLen(before))
		})

		ginkgo.It("denies edits by anyone but the row owner", func() {
			exp := newDraft()
			title := "hijacked"
			_, err := service.EditDraft(manager, exp.ID, UpdateDraftDTO{Title: &title})
			gomega.Expect(err).To(gomega.Equal(internal.ErrUnauthorized))
		})

		ginkgo.It("refuses edits once the expense left draft", func() {
			exp := submitted()
			title := "too late"
			_, err := service.EditDraft(employee, exp.ID, UpdateDraftDTO{Title: &title})
			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidTransition))
		})
	})

	ginkgo.Describe("Submit", func() {
		ginkgo.It("persists bills before advancing the status", func() {
			exp := newDraft()
			uploads := []attachment.Upload{{Name: "receipt.pdf"}, {Name: "invoice.pdf"}}

			out, err := service.Submit(employee, exp.ID, uploads)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(out.Status).To(gomega.Equal(internal.ExpenseStatusSubmitted))
			gomega.Expect(files.savedBills).To(gomega.Equal(2))
		})

		ginkgo.It("leaves the draft untouched when the upload fails", func() {
			exp := newDraft()
			files.failSave = true

			_, err := service.Submit(employee, exp.ID, []attachment.Upload{{Name: "receipt.pdf"}})

			gomega.Expect(err).To(gomega.HaveOccurred())
			cur, _ := repo.GetByID(exp.ID)
			gomega.Expect(cur.Status).To(gomega.Equal(internal.ExpenseStatusDraft))
		})

		ginkgo.It("denies submission by a different user", func() {
			exp := newDraft()
			_, err := service.Submit(manager, exp.ID, nil)
			gomega.Expect(err).To(gomega.Equal(internal.ErrUnauthorized))
		})

		ginkgo.It("refuses to submit twice", func() {
			exp := submitted()
			_, err := service.Submit(employee, exp.ID, nil)
			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidTransition))
		})
	})

	ginkgo.Describe("ManagerReview", func() {
		ginkgo.It("requires the manager role before looking at the status", func() {
			exp := submitted()
			_, err := service.ManagerReview(employee, exp.ID, ReviewDTO{Action: ReviewActionApprove})
			gomega.Expect(err).To(gomega.Equal(internal.ErrUnauthorized))
		})

		ginkgo.It("approves a submitted expense and records the approver", func() {
			exp := submitted()

			out, err := service.ManagerReview(manager, exp.ID, ReviewDTO{Action: ReviewActionApprove})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(out.Status).To(gomega.Equal(internal.ExpenseStatusManagerApproved))
			gomega.Expect(out.ManagerApprovedBy).ToNot(gomega.BeNil())
			gomega.Expect(*out.ManagerApprovedBy).To(gomega.Equal(manager.ID))
		})

		ginkgo.It("approves a reviewed expense the same as a submitted one", func() {
			exp := submitted()
			_, err := service.MarkReviewed(manager, exp.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			out, err := service.ManagerReview(manager, exp.ID, ReviewDTO{Action: ReviewActionApprove})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(out.Status).To(gomega.Equal(internal.ExpenseStatusManagerApproved))
		})

		ginkgo.It("requires a reason to reject", func() {
			exp := submitted()
			_, err := service.ManagerReview(manager, exp.ID, ReviewDTO{Action: ReviewActionReject})
			gomega.Expect(err).To(gomega.Equal(ErrReasonRequired))
		})

		ginkgo.It("records the rejection reason and terminates the flow", func() {
			exp := submitted()

			out, err := service.ManagerReview(manager, exp.ID, ReviewDTO{
				Action: ReviewActionReject,
				Reason: "missing receipt",
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(out.Status).To(gomega.Equal(internal.ExpenseStatusManagerRejected))
			gomega.Expect(*out.ManagerRejectionReason).To(gomega.Equal("missing receipt"))

			_, err = service.ManagerReview(manager, exp.ID, ReviewDTO{Action: ReviewActionApprove})
			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidTransition))
		})

		ginkgo.It("refuses to act on a draft", func() {
			exp := newDraft()
			_, err := service.ManagerReview(manager, exp.ID, ReviewDTO{Action: ReviewActionApprove})
			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidTransition))
		})
	})

	ginkgo.Describe("OwnerReview", func() {
		ginkgo.It("refuses to approve before the manager stage", func() {
			exp := submitted()
			_, err := service.OwnerReview(owner, exp.ID, ReviewDTO{Action: ReviewActionApprove})
			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidTransition))
		})

		ginkgo.It("approves a manager-approved expense", func() {
			exp := submitted()
			_, err := service.ManagerReview(manager, exp.ID, ReviewDTO{Action: ReviewActionApprove})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			out, err := service.OwnerReview(owner, exp.ID, ReviewDTO{Action: ReviewActionApprove})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(out.Status).To(gomega.Equal(internal.ExpenseStatusOwnerApproved))
			gomega.Expect(*out.OwnerApprovedBy).To(gomega.Equal(owner.ID))
		})
	})

	ginkgo.Describe("Pay", func() {
		ownerApproved := func() *Expense {
			exp := submitted()
			_, err := service.ManagerReview(manager, exp.ID, ReviewDTO{Action: ReviewActionApprove})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			out, err := service.OwnerReview(owner, exp.ID, ReviewDTO{Action: ReviewActionApprove})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			return out
		}

		ginkgo.It("requires the accounts role", func() {
			exp := ownerApproved()
			_, err := service.Pay(owner, exp.ID, PayDTO{PaymentReference: "TXN123"})
			gomega.Expect(err).To(gomega.Equal(internal.ErrUnauthorized))
		})

		ginkgo.It("requires a payment reference", func() {
			exp := ownerApproved()
			_, err := service.Pay(accounts, exp.ID, PayDTO{})
			gomega.Expect(err).To(gomega.Equal(ErrReferenceRequired))
		})

		ginkgo.It("pays directly from owner approval", func() {
			exp := ownerApproved()

			out, err := service.Pay(accounts, exp.ID, PayDTO{PaymentReference: "TXN123"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(out.Status).To(gomega.Equal(internal.ExpenseStatusPaid))
			gomega.Expect(*out.PaymentReference).To(gomega.Equal("TXN123"))
		})

		ginkgo.It("pays from the optional pending_payment stage", func() {
			exp := ownerApproved()
			_, err := service.MarkPendingPayment(accounts, exp.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			out, err := service.Pay(accounts, exp.ID, PayDTO{PaymentReference: "TXN456"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(out.Status).To(gomega.Equal(internal.ExpenseStatusPaid))
		})

		ginkgo.It("refuses to pay twice", func() {
			exp := ownerApproved()
			_, err := service.Pay(accounts, exp.ID, PayDTO{PaymentReference: "TXN123"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.Pay(accounts, exp.ID, PayDTO{PaymentReference: "TXN124"})
			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidTransition))
		})
	})

	ginkgo.Describe("full lifecycle", func() {
		ginkgo.It("walks draft to paid and leaves one log row per transition", func() {
			exp := newDraft()

			_, err := service.Submit(employee, exp.ID, []attachment.Upload{{Name: "lunch.jpg"}})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ManagerReview(manager, exp.ID, ReviewDTO{Action: ReviewActionApprove})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.OwnerReview(owner, exp.ID, ReviewDTO{Action: ReviewActionApprove})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			out, err := service.Pay(accounts, exp.ID, PayDTO{PaymentReference: "TXN123"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(out.Status).To(gomega.Equal(internal.ExpenseStatusPaid))

			logs, err := service.Logs(employee, exp.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(logs).To(gomega.HaveLen(5))
			gomega.Expect(logs[0].Status).To(gomega.Equal(internal.ExpenseStatusDraft))
			gomega.Expect(logs[1].Status).To(gomega.Equal(internal.ExpenseStatusSubmitted))
			gomega.Expect(logs[2].Status).To(gomega.Equal(internal.ExpenseStatusManagerApproved))
			gomega.Expect(logs[3].Status).To(gomega.Equal(internal.ExpenseStatusOwnerApproved))
			gomega.Expect(logs[4].Status).To(gomega.Equal(internal.ExpenseStatusPaid))

			gomega.Expect(logs[2].ActorID).To(gomega.Equal(manager.ID))
			gomega.Expect(logs[3].ActorID).To(gomega.Equal(owner.ID))
			gomega.Expect(logs[4].ActorID).To(gomega.Equal(accounts.ID))
		})

		ginkgo.It("still completes the transition when the audit insert fails", func() {
			exp := newDraft()
			repo.failLogs = true

			out, err := service.Submit(employee, exp.ID, nil)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(out.Status).To(gomega.Equal(internal.ExpenseStatusSubmitted))
		})
	})

	ginkgo.Describe("GetExpense", func() {
		ginkgo.It("hides another user's draft from a manager", func() {
			exp := newDraft()
			_, err := service.GetExpense(manager, exp.ID)
			gomega.Expect(err).To(gomega.Equal(internal.ErrUnauthorized))
		})

		ginkgo.It("shows a submitted expense to a manager", func() {
			exp := submitted()
			out, err := service.GetExpense(manager, exp.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(out.ID).To(gomega.Equal(exp.ID))
		})
	})

	ginkgo.Describe("DeleteDraft", func() {
		ginkgo.It("removes the draft and its attachments", func() {
			exp := newDraft()

			err := service.DeleteDraft(employee, exp.ID)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(files.deleted).To(gomega.ContainElement(exp.ID))
			_, err = repo.GetByID(exp.ID)
			gomega.Expect(err).To(gomega.HaveOccurred())
		})

		ginkgo.It("refuses once the expense is submitted", func() {
			exp := submitted()
			err := service.DeleteDraft(employee, exp.ID)
			gomega.Expect(err).To(gomega.Equal(internal.ErrInvalidTransition))
		})
	})
})
