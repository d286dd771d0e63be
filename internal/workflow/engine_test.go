package workflow_test

import (
	"context"
	"sort"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	internal "github.com/clearspend/expense-approval/internal"
	auditDatamodel "github.com/clearspend/expense-approval/internal/core/datamodel/audit"
	"github.com/clearspend/expense-approval/internal/core/events"
	"github.com/clearspend/expense-approval/internal/expense"
	"github.com/clearspend/expense-approval/internal/user"
	"github.com/clearspend/expense-approval/internal/workflow"
)

// In-memory store for testing. InTransaction just runs fn against the same
// store; atomicity is the real store's concern.
type mockStore struct {
	expenses       map[int64]*expense.Expense
	approvals      map[int64]*workflow.Approval
	auditEntries   []*auditDatamodel.Entry
	nextApprovalID int64
}

func newMockStore() *mockStore {
	return &mockStore{
		expenses:       make(map[int64]*expense.Expense),
		approvals:      make(map[int64]*workflow.Approval),
		nextApprovalID: 1,
	}
}

func (m *mockStore) InTransaction(ctx context.Context, fn func(workflow.Store) error) error {
	return fn(m)
}

func (m *mockStore) Expenses() workflow.ExpenseStore   { return &mockExpenseStore{m} }
func (m *mockStore) Approvals() workflow.ApprovalStore { return &mockApprovalStore{m} }
func (m *mockStore) Audit() workflow.AuditStore        { return &mockAuditStore{m} }

type mockExpenseStore struct{ s *mockStore }

func (m *mockExpenseStore) GetByID(ctx context.Context, id int64) (*expense.Expense, error) {
	exp, ok := m.s.expenses[id]
	if !ok {
		return nil, internal.ErrExpenseNotFound
	}
	copied := *exp
	return &copied, nil
}

func (m *mockExpenseStore) Update(ctx context.Context, exp *expense.Expense) error {
	copied := *exp
	m.s.expenses[exp.ID] = &copied
	return nil
}

type mockApprovalStore struct{ s *mockStore }

func (m *mockApprovalStore) GetByID(ctx context.Context, id int64) (*workflow.Approval, error) {
	a, ok := m.s.approvals[id]
	if !ok {
		return nil, internal.ErrApprovalNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockApprovalStore) Create(ctx context.Context, a *workflow.Approval) error {
	a.ID = m.s.nextApprovalID
	m.s.nextApprovalID++
	copied := *a
	m.s.approvals[a.ID] = &copied
	return nil
}

func (m *mockApprovalStore) Update(ctx context.Context, a *workflow.Approval) error {
	copied := *a
	m.s.approvals[a.ID] = &copied
	return nil
}

func (m *mockApprovalStore) PendingByExpense(ctx context.Context, expenseID int64) ([]*workflow.Approval, error) {
	var out []*workflow.Approval
	for _, a := range m.s.approvals {
		if a.ExpenseID == expenseID && a.Status == workflow.ApprovalStatusPending {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockApprovalStore) PendingByApprover(ctx context.Context, approverID int64, limit, offset int) ([]*workflow.Approval, error) {
	var out []*workflow.Approval
	for _, a := range m.s.approvals {
		if a.ApproverID == approverID && a.Status == workflow.ApprovalStatusPending {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return []*workflow.Approval{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (m *mockApprovalStore) ByExpense(ctx context.Context, expenseID int64) ([]*workflow.Approval, error) {
	var out []*workflow.Approval
	for _, a := range m.s.approvals {
		if a.ExpenseID == expenseID {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

type mockAuditStore struct{ s *mockStore }

func (m *mockAuditStore) Append(ctx context.Context, entry *auditDatamodel.Entry) error {
	m.s.auditEntries = append(m.s.auditEntries, entry)
	return nil
}

func (m *mockStore) auditActions() []string {
	actions := make([]string, len(m.auditEntries))
	for i, e := range m.auditEntries {
		actions[i] = e.Action
	}
	return actions
}

// Mock config source for testing
type mockConfigSource struct {
	config *workflow.Config
	err    error
}

func (m *mockConfigSource) ActiveConfig(ctx context.Context, companyID int64) (*workflow.Config, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.config == nil {
		return workflow.Disabled(), nil
	}
	return m.config, nil
}

var _ = Describe("Engine", func() {
	var (
		engine  *workflow.Engine
		store   *mockStore
		dir     *mockDirectory
		configs *mockConfigSource
		ctx     context.Context
	)

	const (
		companyID   = int64(10)
		submitterID = int64(100)
		managerID   = int64(200)
		financeID   = int64(300)
	)

	sequentialTwoStep := func() *workflow.Config {
		return mustParse("sequential",
			`{"approval_levels":[{"level":1,"strategy":"manager"},{"level":2,"strategy":"role","role":"finance"}]}`)
	}

	newDraft := func(id int64) *expense.Expense {
		exp := &expense.Expense{
			ID:               id,
			CompanyID:        companyID,
			SubmitterID:      submitterID,
			Amount:           50000,
			CurrencyCode:     "USD",
			AmountCompanyCcy: 50000,
			ExchangeRate:     1,
			Description:      "team offsite dinner",
			ExpenseStatus:    expense.StatusDraft,
			ExpenseDate:      time.Now().AddDate(0, 0, -1),
		}
		store.expenses[id] = exp
		return exp
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = newMockStore()
		dir = newMockDirectory()
		configs = &mockConfigSource{config: sequentialTwoStep()}

		dir.addUser(submitterID, companyID, user.RoleEmployee, true)
		dir.addUser(managerID, companyID, user.RoleManager, true)
		dir.addUser(financeID, companyID, user.RoleFinance, true)
		dir.managers[submitterID] = managerID

		engine = workflow.NewEngine(store, dir, configs, events.NewEventBus(testLogger()), testLogger())
	})

	Describe("SubmitExpense", func() {
		It("should create a pending level-1 approval for the manager", func() {
			newDraft(1)

			result, err := engine.SubmitExpense(ctx, 1, submitterID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Expense.ExpenseStatus).To(Equal(expense.StatusSubmitted))
			Expect(result.Expense.SubmittedAt).NotTo(BeNil())
			Expect(result.Approval).NotTo(BeNil())
			Expect(result.Approval.ApproverID).To(Equal(managerID))
			Expect(result.Approval.Level).To(Equal(1))
			Expect(result.Approval.Status).To(Equal(workflow.ApprovalStatusPending))
			Expect(store.auditActions()).To(ContainElements("submit", "create"))
		})

		It("should refuse submission by anyone but the submitter", func() {
			newDraft(1)

			_, err := engine.SubmitExpense(ctx, 1, managerID)
			Expect(err).To(Equal(internal.ErrUnauthorizedAccess))
		})

		It("should refuse submission of a non-draft expense", func() {
			exp := newDraft(1)
			exp.ExpenseStatus = expense.StatusSubmitted

			_, err := engine.SubmitExpense(ctx, 1, submitterID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidStateTransition))
		})

		It("should allow resubmission of a rejected expense with a fresh chain", func() {
			exp := newDraft(1)
			rejectedAt := time.Now().Add(-time.Hour)
			exp.ExpenseStatus = expense.StatusRejected
			exp.RejectedAt = &rejectedAt

			result, err := engine.SubmitExpense(ctx, 1, submitterID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Expense.ExpenseStatus).To(Equal(expense.StatusSubmitted))
			Expect(result.Expense.RejectedAt).To(BeNil())
			Expect(result.Approval).NotTo(BeNil())
			Expect(result.Approval.Level).To(Equal(1))
		})

		It("should auto-approve when the workflow is disabled", func() {
			configs.config = workflow.Disabled()
			newDraft(1)

			result, err := engine.SubmitExpense(ctx, 1, submitterID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Expense.ExpenseStatus).To(Equal(expense.StatusApproved))
			Expect(result.Approval).To(BeNil())
			Expect(store.approvals).To(BeEmpty())
			Expect(store.auditActions()).To(ContainElement("auto_approve"))
		})

		It("should auto-approve when the submitter has no manager", func() {
			delete(dir.managers, submitterID)
			newDraft(1)

			result, err := engine.SubmitExpense(ctx, 1, submitterID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Expense.ExpenseStatus).To(Equal(expense.StatusApproved))
			Expect(result.Approval).To(BeNil())
		})

		It("should auto-approve small amounts under a conditional workflow", func() {
			configs.config = mustParse("conditional",
				`{"approval_rules":[{"min_amount":0,"max_amount":10000,"approver_id":0},{"min_amount":10001,"approver_id":300}]}`)
			exp := newDraft(1)
			exp.AmountCompanyCcy = 10000

			result, err := engine.SubmitExpense(ctx, 1, submitterID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Expense.ExpenseStatus).To(Equal(expense.StatusApproved))
		})

		It("should route large amounts to the conditional rule approver", func() {
			configs.config = mustParse("conditional",
				`{"approval_rules":[{"min_amount":0,"max_amount":10000,"approver_id":0},{"min_amount":10001,"approver_id":300}]}`)
			exp := newDraft(1)
			exp.AmountCompanyCcy = 10001

			result, err := engine.SubmitExpense(ctx, 1, submitterID)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Expense.ExpenseStatus).To(Equal(expense.StatusSubmitted))
			Expect(result.Approval.ApproverID).To(Equal(financeID))
		})
	})

	Describe("Approve", func() {
		var firstApproval *workflow.Approval

		BeforeEach(func() {
			newDraft(1)
			result, err := engine.SubmitExpense(ctx, 1, submitterID)
			Expect(err).NotTo(HaveOccurred())
			firstApproval = result.Approval
		})

		It("should advance the chain to the next level", func() {
			result, err := engine.Approve(ctx, firstApproval.ID, managerID, "looks fine")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Approval.Status).To(Equal(workflow.ApprovalStatusApproved))
			Expect(result.Approval.Comments).To(Equal("looks fine"))
			Expect(result.Approval.DecidedAt).NotTo(BeNil())
			Expect(result.Expense.ExpenseStatus).To(Equal(expense.StatusSubmitted))
			Expect(result.NextApproval).NotTo(BeNil())
			Expect(result.NextApproval.Level).To(Equal(2))
			Expect(result.NextApproval.ApproverID).To(Equal(financeID))
		})

		It("should approve the expense after the final level", func() {
			mid, err := engine.Approve(ctx, firstApproval.ID, managerID, "")
			Expect(err).NotTo(HaveOccurred())

			final, err := engine.Approve(ctx, mid.NextApproval.ID, financeID, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(final.NextApproval).To(BeNil())
			Expect(final.Expense.ExpenseStatus).To(Equal(expense.StatusApproved))
			Expect(final.Expense.ApprovedAt).NotTo(BeNil())
		})

		It("should refuse a decision by someone who is not the pending approver", func() {
			_, err := engine.Approve(ctx, firstApproval.ID, financeID, "")
			Expect(err).To(Equal(internal.ErrNotPendingApprover))
		})

		It("should refuse a second decision on the same approval", func() {
			_, err := engine.Approve(ctx, firstApproval.ID, managerID, "")
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Approve(ctx, firstApproval.ID, managerID, "")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidStateTransition))
			Expect(appErr.StatusCode).To(Equal(409))
		})

		It("should fail for an unknown approval", func() {
			_, err := engine.Approve(ctx, 9999, managerID, "")
			Expect(err).To(Equal(internal.ErrApprovalNotFound))
		})
	})

	Describe("Reject", func() {
		var firstApproval *workflow.Approval

		BeforeEach(func() {
			newDraft(1)
			result, err := engine.SubmitExpense(ctx, 1, submitterID)
			Expect(err).NotTo(HaveOccurred())
			firstApproval = result.Approval
		})

		It("should require a comment of at least ten characters", func() {
			_, err := engine.Reject(ctx, firstApproval.ID, managerID, "too short", "")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeCommentTooShort))

			// nothing mutated
			stored, _ := store.Approvals().GetByID(ctx, firstApproval.ID)
			Expect(stored.Status).To(Equal(workflow.ApprovalStatusPending))
		})

		It("should count characters, not bytes, in the comment", func() {
			// nine runes, well over ten bytes
			_, err := engine.Reject(ctx, firstApproval.ID, managerID, "領収書がありません", "")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeCommentTooShort))

			// ten runes are enough
			result, err := engine.Reject(ctx, firstApproval.ID, managerID, "領収書がありません。", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Approval.Status).To(Equal(workflow.ApprovalStatusRejected))
		})

		It("should reject the approval and the expense", func() {
			result, err := engine.Reject(ctx, firstApproval.ID, managerID, "missing receipts for this claim", "missing_documentation")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Approval.Status).To(Equal(workflow.ApprovalStatusRejected))
			Expect(result.Approval.Comments).To(Equal("missing receipts for this claim"))
			Expect(result.Approval.RejectionReason).To(Equal("missing_documentation"))
			Expect(result.Expense.ExpenseStatus).To(Equal(expense.StatusRejected))
			Expect(result.Expense.RejectedAt).NotTo(BeNil())

			stored, _ := store.Approvals().GetByID(ctx, firstApproval.ID)
			Expect(stored.RejectionReason).To(Equal("missing_documentation"))
		})

		It("should cancel sibling pending approvals", func() {
			sibling := &workflow.Approval{
				ExpenseID:  1,
				ApproverID: financeID,
				Level:      2,
				Status:     workflow.ApprovalStatusPending,
			}
			Expect(store.Approvals().Create(ctx, sibling)).To(Succeed())

			result, err := engine.Reject(ctx, firstApproval.ID, managerID, "duplicate of an earlier claim", "duplicate")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Cancelled).To(HaveLen(1))
			Expect(result.Cancelled[0].ID).To(Equal(sibling.ID))

			stored, _ := store.Approvals().GetByID(ctx, sibling.ID)
			Expect(stored.Status).To(Equal(workflow.ApprovalStatusCancelled))
		})

		It("should refuse a rejection after the expense left submitted", func() {
			_, err := engine.Reject(ctx, firstApproval.ID, managerID, "missing receipts for this claim", "")
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Reject(ctx, firstApproval.ID, managerID, "missing receipts for this claim", "")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidStateTransition))
		})
	})

	Describe("BulkApprove", func() {
		It("should process items independently", func() {
			newDraft(1)
			newDraft(2)
			first, err := engine.SubmitExpense(ctx, 1, submitterID)
			Expect(err).NotTo(HaveOccurred())
			second, err := engine.SubmitExpense(ctx, 2, submitterID)
			Expect(err).NotTo(HaveOccurred())

			result := engine.BulkApprove(ctx, []int64{first.Approval.ID, 9999, second.Approval.ID}, managerID, "")
			Expect(result.Succeeded).To(Equal(2))
			Expect(result.Failed).To(Equal(1))
			Expect(result.Results).To(HaveLen(3))
			Expect(result.Results[1].Success).To(BeFalse())
			Expect(result.Results[1].Error).NotTo(BeEmpty())

			stored, _ := store.Approvals().GetByID(ctx, first.Approval.ID)
			Expect(stored.Status).To(Equal(workflow.ApprovalStatusApproved))
		})
	})

	Describe("BulkReject", func() {
		It("should fail every item when the comment is too short", func() {
			newDraft(1)
			submitted, err := engine.SubmitExpense(ctx, 1, submitterID)
			Expect(err).NotTo(HaveOccurred())

			result := engine.BulkReject(ctx, []int64{submitted.Approval.ID}, managerID, "nope", "")
			Expect(result.Succeeded).To(Equal(0))
			Expect(result.Failed).To(Equal(1))
		})
	})

	Describe("Delegate", func() {
		var firstApproval *workflow.Approval

		BeforeEach(func() {
			newDraft(1)
			result, err := engine.SubmitExpense(ctx, 1, submitterID)
			Expect(err).NotTo(HaveOccurred())
			firstApproval = result.Approval
		})

		It("should reassign the approval and keep delegation metadata", func() {
			delegate := dir.addUser(400, companyID, user.RoleManager, true)

			result, err := engine.Delegate(ctx, firstApproval.ID, managerID, delegate.ID, "out of office this week")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.ApproverID).To(Equal(delegate.ID))
			Expect(result.Level).To(Equal(firstApproval.Level))
			Expect(result.Status).To(Equal(workflow.ApprovalStatusPending))
			Expect(result.DelegatedFrom).NotTo(BeNil())
			Expect(*result.DelegatedFrom).To(Equal(managerID))
			Expect(result.DelegatedBy).NotTo(BeNil())
			Expect(*result.DelegatedBy).To(Equal(managerID))
			Expect(result.DelegatedAt).NotTo(BeNil())
			Expect(result.DelegationReason).To(Equal("out of office this week"))
		})

		It("should let the delegate decide afterwards", func() {
			delegate := dir.addUser(400, companyID, user.RoleManager, true)
			_, err := engine.Delegate(ctx, firstApproval.ID, managerID, delegate.ID, "")
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Approve(ctx, firstApproval.ID, managerID, "")
			Expect(err).To(Equal(internal.ErrNotPendingApprover))

			result, err := engine.Approve(ctx, firstApproval.ID, delegate.ID, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Approval.Status).To(Equal(workflow.ApprovalStatusApproved))
		})

		It("should refuse an inactive delegate", func() {
			delegate := dir.addUser(400, companyID, user.RoleManager, false)

			_, err := engine.Delegate(ctx, firstApproval.ID, managerID, delegate.ID, "")
			Expect(err).To(Equal(internal.ErrDelegateNotEligible))
		})

		It("should refuse a delegate from another company", func() {
			delegate := dir.addUser(400, int64(99), user.RoleManager, true)

			_, err := engine.Delegate(ctx, firstApproval.ID, managerID, delegate.ID, "")
			Expect(err).To(Equal(internal.ErrDelegateNotEligible))
		})

		It("should refuse to delegate a decided approval", func() {
			delegate := dir.addUser(400, companyID, user.RoleManager, true)
			_, err := engine.Approve(ctx, firstApproval.ID, managerID, "")
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Delegate(ctx, firstApproval.ID, managerID, delegate.ID, "")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidStateTransition))
		})
	})

	Describe("PendingForApprover", func() {
		It("should list only pending approvals assigned to the approver", func() {
			newDraft(1)
			newDraft(2)
			first, err := engine.SubmitExpense(ctx, 1, submitterID)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.SubmitExpense(ctx, 2, submitterID)
			Expect(err).NotTo(HaveOccurred())

			_, err = engine.Approve(ctx, first.Approval.ID, managerID, "")
			Expect(err).NotTo(HaveOccurred())

			pending, err := engine.PendingForApprover(ctx, managerID, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(1))

			pending, err = engine.PendingForApprover(ctx, financeID, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(1))
			Expect(pending[0].Level).To(Equal(2))
		})
	})

	Describe("ApprovalHistory", func() {
		It("should return the full chain in level order", func() {
			newDraft(1)
			first, err := engine.SubmitExpense(ctx, 1, submitterID)
			Expect(err).NotTo(HaveOccurred())
			mid, err := engine.Approve(ctx, first.Approval.ID, managerID, "")
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.Approve(ctx, mid.NextApproval.ID, financeID, "")
			Expect(err).NotTo(HaveOccurred())

			history, err := engine.ApprovalHistory(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(2))
			Expect(history[0].Level).To(Equal(1))
			Expect(history[0].Status).To(Equal(workflow.ApprovalStatusApproved))
			Expect(history[1].Level).To(Equal(2))
			Expect(history[1].Status).To(Equal(workflow.ApprovalStatusApproved))
		})
	})
})
