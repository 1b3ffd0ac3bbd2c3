package attachment

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

type mockRepository struct {
	files      map[int64]*ExpenseFile
	nextID     int64
	failCreate int
}

func newMockRepository() *mockRepository {
	return &mockRepository{files: make(map[int64]*ExpenseFile), nextID: 1}
}

func (m *mockRepository) Create(file *ExpenseFile) error {
	if m.failCreate > 0 && int(m.nextID) >= m.failCreate {
		return errors.New("insert failed")
	}
	file.ID = m.nextID
	m.nextID++
	m.files[file.ID] = file
	return nil
}

func (m *mockRepository) Delete(fileID int64) error {
	delete(m.files, fileID)
	return nil
}

func (m *mockRepository) ListForExpense(expenseID int64) ([]*ExpenseFile, error) {
	var out []*ExpenseFile
	for _, f := range m.files {
		if f.ExpenseID == expenseID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockRepository) DeleteForExpense(expenseID int64) error {
	for id, f := range m.files {
		if f.ExpenseID == expenseID {
			delete(m.files, id)
		}
	}
	return nil
}

type mockStorage struct {
	stored  []string
	removed []string
	failAt  int
}

func (m *mockStorage) Store(ownerID, expenseID int64, up Upload) (string, error) {
	if m.failAt > 0 && len(m.stored)+1 >= m.failAt {
		return "", ErrStoreFailed
	}
	path := fmt.Sprintf("%d/%d/%s", ownerID, expenseID, up.Name)
	m.stored = append(m.stored, path)
	return path, nil
}

func (m *mockStorage) Remove(path string) error {
	m.removed = append(m.removed, path)
	return nil
}

var _ = ginkgo.Describe("AttachmentService", func() {
	var (
		service *Service
		repo    *mockRepository
		storage *mockStorage
	)

	employee := internal.Actor{ID: 1, Roles: []internal.Role{internal.RoleEmployee}}
	ref := ExpenseRef{ID: 42, OwnerID: 1, Status: internal.ExpenseStatusDraft}

	upload := func(name string) Upload {
		return Upload{
			Name:        name,
			ContentType: "application/pdf",
			Size:        4,
			Content:     strings.NewReader("data"),
		}
	}

	ginkgo.BeforeEach(func() {
		repo = newMockRepository()
		storage = &mockStorage{}
		service = NewService(repo, storage, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	ginkgo.Describe("SaveBills", func() {
		ginkgo.It("persists a blob and a metadata row per upload", func() {
			err := service.SaveBills(employee, ref, []Upload{upload("a.pdf"), upload("b.pdf")})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(storage.stored).To(gomega.HaveLen(2))
			files, _ := repo.ListForExpense(ref.ID)
			gomega.Expect(files).To(gomega.HaveLen(2))
		})

		ginkgo.It("removes blobs and rows of earlier files when a later store fails", func() {
			storage.failAt = 2

			err := service.SaveBills(employee, ref, []Upload{upload("a.pdf"), upload("b.pdf")})

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(storage.removed).To(gomega.ContainElement("1/42/a.pdf"))
			files, _ := repo.ListForExpense(ref.ID)
			gomega.Expect(files).To(gomega.BeEmpty())
		})

		ginkgo.It("removes everything already persisted when a metadata insert fails", func() {
			repo.failCreate = 2

			err := service.SaveBills(employee, ref, []Upload{upload("a.pdf"), upload("b.pdf")})

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(storage.removed).To(gomega.ConsistOf("1/42/a.pdf", "1/42/b.pdf"))
			files, _ := repo.ListForExpense(ref.ID)
			gomega.Expect(files).To(gomega.BeEmpty())
		})

		ginkgo.It("denies bill uploads from anyone but the expense owner", func() {
			other := internal.Actor{ID: 2, Roles: []internal.Role{internal.RoleEmployee}}

			err := service.SaveBills(other, ref, []Upload{upload("a.pdf")})

			gomega.Expect(err).To(gomega.Equal(internal.ErrUnauthorized))
			gomega.Expect(storage.stored).To(gomega.BeEmpty())
		})
	})
})
