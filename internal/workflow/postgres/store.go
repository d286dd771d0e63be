package postgres

import (
	"context"

	"github.com/clearspend/expense-approval/internal"
	approvalDatamodel "github.com/clearspend/expense-approval/internal/core/datamodel/approval"
	auditDatamodel "github.com/clearspend/expense-approval/internal/core/datamodel/audit"
	expenseDatamodel "github.com/clearspend/expense-approval/internal/core/datamodel/expense"
	"github.com/clearspend/expense-approval/internal/expense"
	"github.com/clearspend/expense-approval/internal/workflow"
	"gorm.io/gorm"
)

// WorkflowStore implements workflow.Store using GORM. InTransaction hands the
// callback a store bound to the transaction's *gorm.DB, so every read and
// write inside an engine operation shares one database transaction.
type WorkflowStore struct {
	db        *gorm.DB
	expenses  *expenseStore
	approvals *approvalStore
	audit     *auditStore
}

func NewWorkflowStore(db *gorm.DB) workflow.Store {
	return &WorkflowStore{
		db:        db,
		expenses:  &expenseStore{db: db},
		approvals: &approvalStore{db: db},
		audit:     &auditStore{db: db},
	}
}

func (s *WorkflowStore) InTransaction(ctx context.Context, fn func(workflow.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&WorkflowStore{
			db:        tx,
			expenses:  &expenseStore{db: tx},
			approvals: &approvalStore{db: tx},
			audit:     &auditStore{db: tx},
		})
	})
}

func (s *WorkflowStore) Expenses() workflow.ExpenseStore {
	return s.expenses
}

func (s *WorkflowStore) Approvals() workflow.ApprovalStore {
	return s.approvals
}

func (s *WorkflowStore) Audit() workflow.AuditStore {
	return s.audit
}

type expenseStore struct {
	db *gorm.DB
}

func (r *expenseStore) GetByID(ctx context.Context, id int64) (*expense.Expense, error) {
	var exp expenseDatamodel.Expense
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&exp).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrExpenseNotFound
		}
		return nil, err
	}
	return expense.FromDataModel(&exp), nil
}

func (r *expenseStore) Update(ctx context.Context, exp *expense.Expense) error {
	return r.db.WithContext(ctx).Save(expense.ToDataModel(exp)).Error
}

type approvalStore struct {
	db *gorm.DB
}

func (r *approvalStore) GetByID(ctx context.Context, id int64) (*workflow.Approval, error) {
	var a approvalDatamodel.Approval
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrApprovalNotFound
		}
		return nil, err
	}
	return workflow.ApprovalFromDataModel(&a), nil
}

func (r *approvalStore) Create(ctx context.Context, a *workflow.Approval) error {
	model := workflow.ApprovalToDataModel(a)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	a.ID = model.ID
	return nil
}

func (r *approvalStore) Update(ctx context.Context, a *workflow.Approval) error {
	return r.db.WithContext(ctx).Save(workflow.ApprovalToDataModel(a)).Error
}

func (r *approvalStore) PendingByExpense(ctx context.Context, expenseID int64) ([]*workflow.Approval, error) {
	var approvals []*approvalDatamodel.Approval
	err := r.db.WithContext(ctx).
		Where("expense_id = ? AND status = ?", expenseID, workflow.ApprovalStatusPending).
		Order("level ASC").
		Find(&approvals).Error
	if err != nil {
		return nil, err
	}
	return workflow.ApprovalFromDataModelSlice(approvals), nil
}

func (r *approvalStore) PendingByApprover(ctx context.Context, approverID int64, limit, offset int) ([]*workflow.Approval, error) {
	var approvals []*approvalDatamodel.Approval
	err := r.db.WithContext(ctx).
		Where("approver_id = ? AND status = ?", approverID, workflow.ApprovalStatusPending).
		Order("created_at ASC"). // FIFO inbox
		Limit(limit).
		Offset(offset).
		Find(&approvals).Error
	if err != nil {
		return nil, err
	}
	return workflow.ApprovalFromDataModelSlice(approvals), nil
}

func (r *approvalStore) ByExpense(ctx context.Context, expenseID int64) ([]*workflow.Approval, error) {
	var approvals []*approvalDatamodel.Approval
	err := r.db.WithContext(ctx).
		Where("expense_id = ?", expenseID).
		Order("level ASC, created_at ASC").
		Find(&approvals).Error
	if err != nil {
		return nil, err
	}
	return workflow.ApprovalFromDataModelSlice(approvals), nil
}

type auditStore struct {
	db *gorm.DB
}

func (r *auditStore) Append(ctx context.Context, entry *auditDatamodel.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
