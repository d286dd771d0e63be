package postgres

import (
	"context"

	"github.com/clearspend/expense-approval/internal"
	expenseDatamodel "github.com/clearspend/expense-approval/internal/core/datamodel/expense"
	"github.com/clearspend/expense-approval/internal/expense"
	"gorm.io/gorm"
)

// ExpenseRepository implements the expense.Repository interface using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.Repository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, exp *expense.Expense) error {
	model := expense.ToDataModel(exp)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	exp.ID = model.ID
	return nil
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*expense.Expense, error) {
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

func (r *ExpenseRepository) GetBySubmitter(ctx context.Context, submitterID int64, limit, offset int) ([]*expense.Expense, error) {
	var expenses []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("submitter_id = ?", submitterID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(expenses), nil
}

func (r *ExpenseRepository) GetByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*expense.Expense, error) {
	var expenses []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(expenses), nil
}

func (r *ExpenseRepository) Update(ctx context.Context, exp *expense.Expense) error {
	return r.db.WithContext(ctx).Save(expense.ToDataModel(exp)).Error
}
