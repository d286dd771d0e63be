package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	internal "github.com/clearspend/expense-approval/internal"
	"github.com/clearspend/expense-approval/internal/category"
	categoryDatamodel "github.com/clearspend/expense-approval/internal/core/datamodel/category"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) ListActiveByCompany(ctx context.Context, companyID int64) ([]*category.Category, error) {
	var rows []*categoryDatamodel.ExpenseCategory
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return category.FromDataModelSlice(rows), nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	var row categoryDatamodel.ExpenseCategory
	err := r.db.WithContext(ctx).First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.NewNotFoundError("category not found", internal.ErrCodeInvalidCategory)
		}
		return nil, err
	}
	return category.FromDataModel(&row), nil
}
