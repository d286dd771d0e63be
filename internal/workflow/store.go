package workflow

import (
	"context"

	auditDatamodel "github.com/clearspend/expense-approval/internal/core/datamodel/audit"
	"github.com/clearspend/expense-approval/internal/expense"
	"github.com/clearspend/expense-approval/internal/user"
)

// ExpenseStore is the slice of expense persistence the engine needs.
type ExpenseStore interface {
	GetByID(ctx context.Context, id int64) (*expense.Expense, error)
	Update(ctx context.Context, exp *expense.Expense) error
}

// ApprovalStore persists approval records.
type ApprovalStore interface {
	GetByID(ctx context.Context, id int64) (*Approval, error)
	Create(ctx context.Context, a *Approval) error
	Update(ctx context.Context, a *Approval) error
	PendingByExpense(ctx context.Context, expenseID int64) ([]*Approval, error)
	PendingByApprover(ctx context.Context, approverID int64, limit, offset int) ([]*Approval, error)
	ByExpense(ctx context.Context, expenseID int64) ([]*Approval, error)
}

// AuditStore appends immutable audit entries.
type AuditStore interface {
	Append(ctx context.Context, entry *auditDatamodel.Entry) error
}

// Store bundles the engine's persistence. InTransaction runs fn against a
// Store bound to a single database transaction; every state-changing engine
// operation reads its guards and writes all mutations inside one such call,
// which is what guarantees at most one terminal decision per approval.
type Store interface {
	InTransaction(ctx context.Context, fn func(Store) error) error
	Expenses() ExpenseStore
	Approvals() ApprovalStore
	Audit() AuditStore
}

// Directory is the user-directory surface approver resolution depends on.
// user.Repository satisfies it.
type Directory interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
	ManagerOf(ctx context.Context, userID int64) (*user.User, error)
	ActiveByRole(ctx context.Context, companyID int64, role string) ([]*user.User, error)
}

// ConfigSource yields the active approval policy for a company. When no
// workflow is configured it must return Disabled() rather than an error.
type ConfigSource interface {
	ActiveConfig(ctx context.Context, companyID int64) (*Config, error)
}
