package auth_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/clearspend/expense-approval/internal/auth"
	"github.com/clearspend/expense-approval/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ = Describe("RBACAuthorization", func() {
	var (
		rbac    *auth.RBACAuthorization
		next    http.Handler
		reached bool
	)

	request := func(u *user.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/approvals/1/approve", nil)
		if u != nil {
			req = req.WithContext(user.ContextWith(req.Context(), u))
		}
		rec := httptest.NewRecorder()
		rbac.RequireApproveExpense()(next).ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		rbac = auth.NewRBACAuthorization(testLogger())
		reached = false
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			w.WriteHeader(http.StatusOK)
		})
	})

	It("should pass a user holding the permission through to the handler", func() {
		rec := request(&user.User{ID: 1, Permissions: []string{auth.PermApproveExpenses}})
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(reached).To(BeTrue())
	})

	It("should let admins through without the explicit permission", func() {
		rec := request(&user.User{ID: 1, Role: user.RoleAdmin})
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(reached).To(BeTrue())
	})

	It("should forbid a user lacking the permission", func() {
		rec := request(&user.User{ID: 1, Permissions: []string{"view_expenses"}})
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(reached).To(BeFalse())
	})

	It("should reject a request with no authenticated user in context", func() {
		rec := request(nil)
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(reached).To(BeFalse())
	})
})
