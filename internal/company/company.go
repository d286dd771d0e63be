package company

import (
	"time"

	companyDatamodel "github.com/clearspend/expense-approval/internal/core/datamodel/company"
)

type Company struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	CurrencyCode string    `json:"currency_code"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Workflow is the stored (still untyped) form of a company approval policy.
type Workflow struct {
	ID           int64     `json:"id"`
	CompanyID    int64     `json:"company_id"`
	Name         string    `json:"name"`
	WorkflowType string    `json:"workflow_type"`
	Priority     int       `json:"priority"`
	IsActive     bool      `json:"is_active"`
	Rules        string    `json:"rules"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func FromDataModel(c *companyDatamodel.Company) *Company {
	return &Company{
		ID:           c.ID,
		Name:         c.Name,
		CurrencyCode: c.CurrencyCode,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func WorkflowFromDataModel(w *companyDatamodel.ApprovalWorkflow) *Workflow {
	return &Workflow{
		ID:           w.ID,
		CompanyID:    w.CompanyID,
		Name:         w.Name,
		WorkflowType: w.WorkflowType,
		Priority:     w.Priority,
		IsActive:     w.IsActive,
		Rules:        w.Rules,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
}

func WorkflowFromDataModelSlice(workflows []*companyDatamodel.ApprovalWorkflow) []*Workflow {
	result := make([]*Workflow, len(workflows))
	for i, w := range workflows {
		result[i] = WorkflowFromDataModel(w)
	}
	return result
}
