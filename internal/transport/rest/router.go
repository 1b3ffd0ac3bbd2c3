package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/expenseflow/expense-approval/internal"
	"github.com/expenseflow/expense-approval/internal/advance"
	"github.com/expenseflow/expense-approval/internal/auth"
	"github.com/expenseflow/expense-approval/internal/expense"
	"github.com/expenseflow/expense-approval/internal/notification"
	"github.com/expenseflow/expense-approval/internal/profile"
	"github.com/expenseflow/expense-approval/internal/transport/middleware"
	"github.com/expenseflow/expense-approval/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers bundles everything RegisterAllRoutes mounts.
type Handlers struct {
	Auth          *auth.Handler
	Profile       *profile.Handler
	Expense       *expense.Handler
	Advance       *advance.Handler
	Notification  *notification.Handler
	AllowedOrigin string
	UploadDir     string
}

// RegisterAllRoutes wires the route tree. Route-group role guards are a
// coarse first gate; the service layer re-checks row-level access on every
// operation.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db, h.UploadDir)
	guard := auth.NewRoleGuard(logger)

	router.Use(middleware.CORS(h.AllowedOrigin))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/signup", h.Auth.Signup)
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		r.Get("/categories", h.Expense.GetCategories)

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.Auth.Me)

			pr.Route("/profiles", func(ur chi.Router) {
				ur.Get("/me", h.Profile.GetOwnProfile)
				ur.Patch("/me", h.Profile.UpdateOwnProfile)
				ur.Get("/", h.Profile.ListProfiles)
				ur.Get("/{userID}", h.Profile.GetProfile)
			})

			pr.Group(func(or chi.Router) {
				or.Use(guard.RequireRole(internal.RoleOwner))
				or.Delete("/users/{userID}", h.Profile.DeleteUser)
				or.Post("/roles/grant", h.Auth.GrantRole)
				or.Post("/roles/revoke", h.Auth.RevokeRole)
			})

			pr.Route("/expenses", func(er chi.Router) {
				er.Post("/", h.Expense.CreateExpense)
				er.Get("/", h.Expense.ListExpenses)
				er.Get("/{id}", h.Expense.GetExpense)
				er.Patch("/{id}", h.Expense.UpdateDraft)
				er.Delete("/{id}", h.Expense.DeleteDraft)
				er.Post("/{id}/submit", h.Expense.Submit)
				er.Get("/{id}/logs", h.Expense.GetLogs)
				er.Get("/{id}/files", h.Expense.ListFiles)
				er.Post("/{id}/files", h.Expense.UploadBills)

				er.Group(func(mr chi.Router) {
					mr.Use(guard.RequireRole(internal.RoleManager))
					mr.Patch("/{id}/mark-reviewed", h.Expense.MarkReviewed)
					mr.Patch("/{id}/manager-review", h.Expense.ManagerReview)
				})

				er.Group(func(owr chi.Router) {
					owr.Use(guard.RequireRole(internal.RoleOwner))
					owr.Patch("/{id}/owner-review", h.Expense.OwnerReview)
				})

				er.Group(func(ar chi.Router) {
					ar.Use(guard.RequireRole(internal.RoleAccounts))
					ar.Patch("/{id}/mark-pending", h.Expense.MarkPendingPayment)
					ar.Patch("/{id}/pay", h.Expense.Pay)
					ar.Post("/{id}/payment-proof", h.Expense.UploadPaymentProof)
				})
			})

			pr.Route("/advances", func(ar chi.Router) {
				ar.Post("/", h.Advance.CreateAdvance)
				ar.Get("/", h.Advance.ListAdvances)
				ar.Get("/{id}", h.Advance.GetAdvance)

				ar.Group(func(rr chi.Router) {
					rr.Use(guard.RequireAnyRole(internal.RoleManager, internal.RoleOwner))
					rr.Patch("/{id}/review", h.Advance.ReviewAdvance)
				})

				ar.Group(func(dr chi.Router) {
					dr.Use(guard.RequireRole(internal.RoleAccounts))
					dr.Patch("/{id}/disburse", h.Advance.DisburseAdvance)
				})
			})

			pr.Route("/notifications", func(nr chi.Router) {
				nr.Get("/", h.Notification.ListNotifications)
				nr.Patch("/{id}/read", h.Notification.MarkRead)
				nr.Post("/read-all", h.Notification.MarkAllRead)
			})
		})
	})
}
