package auth

import (
	"log/slog"
	"net/http"

	"github.com/clearspend/expense-approval/internal/user"
)

// Permission names used by the route guards.
const (
	PermApproveExpenses  = "approve_expenses"
	PermRejectExpenses   = "reject_expenses"
	PermDelegateApproval = "delegate_approvals"
	PermAdmin            = "admin"
)

type RBACAuthorization struct {
	logger *slog.Logger
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{logger: logger}
}

// Require guards a route with a permission check against the authenticated
// user in context. Admins pass every check.
func (ra *RBACAuthorization) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := user.FromContext(r.Context())
			if !ok || u == nil {
				ra.logger.Warn("authorization check failed: user not found in context")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !u.HasPermission(permission) && !u.IsAdmin() {
				ra.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", u.ID,
					"required_permission", permission,
					"user_permissions", u.Permissions)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireApproveExpense() func(http.Handler) http.Handler {
	return ra.Require(PermApproveExpenses)
}

func (ra *RBACAuthorization) RequireRejectExpense() func(http.Handler) http.Handler {
	return ra.Require(PermRejectExpenses)
}

func (ra *RBACAuthorization) RequireDelegateApproval() func(http.Handler) http.Handler {
	return ra.Require(PermDelegateApproval)
}
