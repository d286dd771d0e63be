package postgres

import (
	"context"

	"github.com/clearspend/expense-approval/internal"
	"github.com/clearspend/expense-approval/internal/company"
	companyDatamodel "github.com/clearspend/expense-approval/internal/core/datamodel/company"
	"gorm.io/gorm"
)

// CompanyRepository implements the company.Repository interface using GORM
type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) company.Repository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) GetByID(ctx context.Context, id int64) (*company.Company, error) {
	var c companyDatamodel.Company
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrCompanyNotFound
		}
		return nil, err
	}
	return company.FromDataModel(&c), nil
}

// ActiveWorkflows returns the company's active workflows ordered by priority
// descending, then id ascending. The first row is the one that applies.
func (r *CompanyRepository) ActiveWorkflows(ctx context.Context, companyID int64) ([]*company.Workflow, error) {
	var workflows []*companyDatamodel.ApprovalWorkflow
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("priority DESC, id ASC").
		Find(&workflows).Error
	if err != nil {
		return nil, err
	}
	return company.WorkflowFromDataModelSlice(workflows), nil
}
