package auth

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

type mockUserRepository struct {
	users  map[int64]*User
	roles  map[int64][]internal.Role
	nextID int64

	failRoles bool
}

func newMockUserRepository() *mockUserRepository {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	return &mockUserRepository{
		users: map[int64]*User{
			1: {ID: 1, Email: "employee@mail.com", PasswordHash: string(hash), IsActive: true},
			2: {ID: 2, Email: "manager@mail.com", PasswordHash: string(hash), IsActive: true},
			3: {ID: 3, Email: "inactive@mail.com", PasswordHash: string(hash), IsActive: false},
		},
		roles: map[int64][]internal.Role{
			1: {internal.RoleEmployee},
			2: {internal.RoleEmployee, internal.RoleManager},
		},
		nextID: 4,
	}
}

func (m *mockUserRepository) GetByEmail(email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) GetByID(userID int64) (*User, error) {
	if u, ok := m.users[userID]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) CreateUser(user *User, name, department string) error {
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	m.roles[user.ID] = []internal.Role{internal.RoleEmployee}
	return nil
}

func (m *mockUserRepository) RolesForUser(userID int64) ([]internal.Role, error) {
	if m.failRoles {
		return nil, errors.New("role lookup failed")
	}
	return m.roles[userID], nil
}

func (m *mockUserRepository) GrantRole(userID int64, role internal.Role, grantedBy int64) error {
	for _, r := range m.roles[userID] {
		if r == role {
			return nil
		}
	}
	m.roles[userID] = append(m.roles[userID], role)
	return nil
}

func (m *mockUserRepository) RevokeRole(userID int64, role internal.Role) error {
	out := m.roles[userID][:0]
	for _, r := range m.roles[userID] {
		if r != role {
			out = append(out, r)
		}
	}
	m.roles[userID] = out
	return nil
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		mockRepo *mockUserRepository
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockUserRepository()
		tokenGen := NewJWTTokenGenerator(
			"test-access-secret-with-enough-length!!",
			"test-refresh-secret-with-enough-length!",
			15*time.Minute,
			24*time.Hour,
		)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = NewService(mockRepo, tokenGen, bcrypt.MinCost, logger)
	})

	ginkgo.Describe("SignUp", func() {
		ginkgo.It("creates an account holding the employee role", func() {
			user, err := service.SignUp(SignupDTO{
				Email:    "new@mail.com",
				Password: "long-enough-password",
				Name:     "New Hire",
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			roles, err := mockRepo.RolesForUser(user.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(roles).To(gomega.Equal([]internal.Role{internal.RoleEmployee}))
		})

		ginkgo.It("rejects a duplicate email", func() {
			_, err := service.SignUp(SignupDTO{
				Email:    "employee@mail.com",
				Password: "long-enough-password",
				Name:     "Duplicate",
			})
			gomega.Expect(err).To(gomega.Equal(ErrEmailTaken))
		})

		ginkgo.It("rejects a short password", func() {
			_, err := service.SignUp(SignupDTO{
				Email:    "short@mail.com",
				Password: "short",
				Name:     "Short",
			})
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.It("returns a token pair for valid credentials", func() {
			tokens, err := service.Authenticate(LoginDTO{
				Email:    "employee@mail.com",
				Password: "correct_password",
			})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tokens.AccessToken).ToNot(gomega.BeEmpty())
			gomega.Expect(tokens.RefreshToken).ToNot(gomega.BeEmpty())

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal("1"))
			gomega.Expect(claims.Email).To(gomega.Equal("employee@mail.com"))
		})

		ginkgo.It("rejects a wrong password", func() {
			_, err := service.Authenticate(LoginDTO{
				Email:    "employee@mail.com",
				Password: "wrong_password",
			})
			gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
		})

		ginkgo.It("rejects an unknown email", func() {
			_, err := service.Authenticate(LoginDTO{
				Email:    "nobody@mail.com",
				Password: "correct_password",
			})
			gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
		})

		ginkgo.It("rejects an inactive account", func() {
			_, err := service.Authenticate(LoginDTO{
				Email:    "inactive@mail.com",
				Password: "correct_password",
			})
			gomega.Expect(err).To(gomega.Equal(ErrUserInactive))
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		ginkgo.It("issues a fresh pair from a valid refresh token", func() {
			tokens, err := service.Authenticate(LoginDTO{
				Email:    "manager@mail.com",
				Password: "correct_password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			fresh, err := service.RefreshTokens(tokens.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(fresh.AccessToken).ToNot(gomega.BeEmpty())
		})

		ginkgo.It("rejects garbage tokens", func() {
			_, err := service.RefreshTokens("not-a-token")
			gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
		})
	})

	ginkgo.Describe("ResolveActor", func() {
		ginkgo.It("resolves roles from storage, not from the token", func() {
			actor := service.ResolveActor(&Claims{UserID: "2", Email: "manager@mail.com"})

			gomega.Expect(actor.ID).To(gomega.Equal(int64(2)))
			gomega.Expect(actor.HasRole(internal.RoleManager)).To(gomega.BeTrue())
			gomega.Expect(actor.PrimaryRole()).To(gomega.Equal(internal.RoleManager))
		})

		ginkgo.It("degrades to an empty role set when the lookup fails", func() {
			mockRepo.failRoles = true

			actor := service.ResolveActor(&Claims{UserID: "2", Email: "manager@mail.com"})

			gomega.Expect(actor.ID).To(gomega.Equal(int64(2)))
			gomega.Expect(actor.Roles).To(gomega.BeEmpty())
			gomega.Expect(actor.HasRole(internal.RoleEmployee)).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("role management", func() {
		ownerActor := internal.Actor{ID: 9, Roles: []internal.Role{internal.RoleOwner}}
		managerActor := internal.Actor{ID: 2, Roles: []internal.Role{internal.RoleManager}}

		ginkgo.It("lets the owner grant and revoke roles", func() {
			err := service.GrantRole(ownerActor, GrantRoleDTO{UserID: 1, Role: "accounts"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			roles, _ := mockRepo.RolesForUser(1)
			gomega.Expect(roles).To(gomega.ContainElement(internal.RoleAccounts))

			err = service.RevokeRole(ownerActor, GrantRoleDTO{UserID: 1, Role: "accounts"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			roles, _ = mockRepo.RolesForUser(1)
			gomega.Expect(roles).ToNot(gomega.ContainElement(internal.RoleAccounts))
		})

		ginkgo.It("denies role changes to anyone else", func() {
			err := service.GrantRole(managerActor, GrantRoleDTO{UserID: 1, Role: "manager"})
			gomega.Expect(err).To(gomega.Equal(internal.ErrUnauthorized))
		})

		ginkgo.It("rejects unknown role names", func() {
			err := service.GrantRole(ownerActor, GrantRoleDTO{UserID: 1, Role: "superuser"})
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})
})
