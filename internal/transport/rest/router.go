package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/clearspend/expense-approval/internal/auth"
	"github.com/clearspend/expense-approval/internal/category"
	"github.com/clearspend/expense-approval/internal/expense"
	"github.com/clearspend/expense-approval/internal/transport/middleware"
	"github.com/clearspend/expense-approval/internal/transport/swagger"
	"github.com/clearspend/expense-approval/internal/user"
	"github.com/clearspend/expense-approval/internal/workflow"
)

// RegisterAllRoutes mounts every API surface under /api/v1. Draft CRUD lives
// under /expenses; everything from submission onward is the approval
// workflow's surface under /expenses/{id} and /approvals.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	rbac *auth.RBACAuthorization,
	userHandler *user.Handler,
	expenseHandler *expense.Handler,
	workflowHandler *workflow.Handler,
	categoryHandler *category.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", authHandler.Login)
			sr.Post("/refresh", authHandler.RefreshToken)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			pr.Get("/users/me", userHandler.GetCurrentUser)
			pr.Get("/users", userHandler.ListCompanyUsers)

			pr.Get("/categories", categoryHandler.ListCategories)
			pr.Get("/categories/{id}", categoryHandler.GetCategory)

			pr.Route("/expenses", func(er chi.Router) {
				er.Post("/", expenseHandler.CreateExpense)
				er.Get("/", expenseHandler.GetUserExpenses)
				er.Get("/company", expenseHandler.GetCompanyExpenses)
				er.Get("/{id}", expenseHandler.GetExpense)
				er.Patch("/{id}", expenseHandler.UpdateExpense)

				er.Post("/{id}/submit", workflowHandler.SubmitExpense)
				er.Get("/{id}/approvals", workflowHandler.ApprovalHistory)
			})

			pr.Route("/approvals", func(ar chi.Router) {
				ar.Get("/pending", workflowHandler.PendingApprovals)

				ar.Group(func(mr chi.Router) {
					mr.Use(rbac.RequireApproveExpense())
					mr.Patch("/{id}/approve", workflowHandler.Approve)
					mr.Post("/bulk-approve", workflowHandler.BulkApprove)
				})

				ar.Group(func(mr chi.Router) {
					mr.Use(rbac.RequireRejectExpense())
					mr.Patch("/{id}/reject", workflowHandler.Reject)
					mr.Post("/bulk-reject", workflowHandler.BulkReject)
				})

				ar.Group(func(mr chi.Router) {
					mr.Use(rbac.RequireDelegateApproval())
					mr.Patch("/{id}/delegate", workflowHandler.Delegate)
				})
			})
		})
	})
}
