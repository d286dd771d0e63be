package expense

import (
	"time"
)

// Expense holds amounts in minor units (cents). AmountCompanyCcy and
// ExchangeRate are frozen when the expense is created and never recomputed.
type Expense struct {
	ID               int64      `json:"id" gorm:"primaryKey"`
	CompanyID        int64      `json:"company_id" gorm:"column:company_id;not null;index"`
	SubmitterID      int64      `json:"submitter_id" gorm:"column:submitter_id;not null;index"`
	CategoryID       *int64     `json:"category_id,omitempty" gorm:"column:category_id"`
	Amount           int64      `json:"amount" gorm:"column:amount;not null"`
	CurrencyCode     string     `json:"currency_code" gorm:"column:currency_code;not null"`
	AmountCompanyCcy int64      `json:"amount_company_ccy" gorm:"column:amount_company_ccy;not null"`
	ExchangeRate     float64    `json:"exchange_rate" gorm:"column:exchange_rate;default:1"`
	Description      string     `json:"description" gorm:"not null"`
	ExpenseStatus    string     `json:"expense_status" gorm:"column:expense_status;default:draft"`
	ExpenseDate      time.Time  `json:"expense_date" gorm:"column:expense_date;type:date"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty" gorm:"column:submitted_at"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty" gorm:"column:approved_at"`
	RejectedAt       *time.Time `json:"rejected_at,omitempty" gorm:"column:rejected_at"`
	PaidAt           *time.Time `json:"paid_at,omitempty" gorm:"column:paid_at"`
	CreatedAt        time.Time  `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Expense) TableName() string {
	return "expenses"
}
