package company

import (
	"time"
)

// Company is the tenant root. Every user, expense and workflow belongs to
// exactly one company; expenses are reported in the company currency.
type Company struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	CurrencyCode string    `json:"currency_code" gorm:"column:currency_code;not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Company) TableName() string {
	return "companies"
}

// ApprovalWorkflow stores one company approval policy. Rules holds the raw
// JSON configuration; it is parsed into a typed config once at load time.
type ApprovalWorkflow struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	CompanyID    int64     `json:"company_id" gorm:"column:company_id;not null;index"`
	Name         string    `json:"name" gorm:"not null"`
	WorkflowType string    `json:"workflow_type" gorm:"column:workflow_type;not null"`
	Priority     int       `json:"priority" gorm:"column:priority;default:0"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active;default:true"`
	Rules        string    `json:"rules" gorm:"column:rules;type:jsonb"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (ApprovalWorkflow) TableName() string {
	return "approval_workflows"
}
