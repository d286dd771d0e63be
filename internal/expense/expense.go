package expense

import (
	"time"

	expenseDatamodel "github.com/clearspend/expense-approval/internal/core/datamodel/expense"
)

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusPaid      = "paid"
)

// Expense is the domain view of a spend claim. Amounts are minor units.
// AmountCompanyCcy and ExchangeRate are frozen at creation; the approval
// engine only ever reads them.
type Expense struct {
	ID               int64      `json:"id"`
	CompanyID        int64      `json:"company_id"`
	SubmitterID      int64      `json:"submitter_id"`
	CategoryID       *int64     `json:"category_id,omitempty"`
	Amount           int64      `json:"amount"`
	CurrencyCode     string     `json:"currency_code"`
	AmountCompanyCcy int64      `json:"amount_company_ccy"`
	ExchangeRate     float64    `json:"exchange_rate"`
	Description      string     `json:"description"`
	ExpenseStatus    string     `json:"expense_status"`
	ExpenseDate      time.Time  `json:"expense_date"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	RejectedAt       *time.Time `json:"rejected_at,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (e *Expense) IsDraft() bool {
	return e.ExpenseStatus == StatusDraft
}

func (e *Expense) IsSubmitted() bool {
	return e.ExpenseStatus == StatusSubmitted
}

// IsEditable reports whether the submitter may still change the expense.
// Rejected expenses revert to draft on edit so they can be resubmitted.
func (e *Expense) IsEditable() bool {
	return e.ExpenseStatus == StatusDraft || e.ExpenseStatus == StatusRejected
}

// CanSubmit allows drafts and rejected expenses; resubmission after a
// rejection goes through the same path and gets a fresh approval chain.
func (e *Expense) CanSubmit() bool {
	return e.ExpenseStatus == StatusDraft || e.ExpenseStatus == StatusRejected
}

func (e *Expense) MarkSubmitted(now time.Time) {
	e.ExpenseStatus = StatusSubmitted
	e.SubmittedAt = &now
	e.RejectedAt = nil
	e.UpdatedAt = now
}

func (e *Expense) MarkApproved(now time.Time) {
	e.ExpenseStatus = StatusApproved
	e.ApprovedAt = &now
	e.UpdatedAt = now
}

func (e *Expense) MarkRejected(now time.Time) {
	e.ExpenseStatus = StatusRejected
	e.RejectedAt = &now
	e.UpdatedAt = now
}

func (e *Expense) MarkPaid(now time.Time) {
	e.ExpenseStatus = StatusPaid
	e.PaidAt = &now
	e.UpdatedAt = now
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	return &expenseDatamodel.Expense{
		ID:               e.ID,
		CompanyID:        e.CompanyID,
		SubmitterID:      e.SubmitterID,
		CategoryID:       e.CategoryID,
		Amount:           e.Amount,
		CurrencyCode:     e.CurrencyCode,
		AmountCompanyCcy: e.AmountCompanyCcy,
		ExchangeRate:     e.ExchangeRate,
		Description:      e.Description,
		ExpenseStatus:    e.ExpenseStatus,
		ExpenseDate:      e.ExpenseDate,
		SubmittedAt:      e.SubmittedAt,
		ApprovedAt:       e.ApprovedAt,
		RejectedAt:       e.RejectedAt,
		PaidAt:           e.PaidAt,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func FromDataModel(e *expenseDatamodel.Expense) *Expense {
	return &Expense{
		ID:               e.ID,
		CompanyID:        e.CompanyID,
		SubmitterID:      e.SubmitterID,
		CategoryID:       e.CategoryID,
		Amount:           e.Amount,
		CurrencyCode:     e.CurrencyCode,
		AmountCompanyCcy: e.AmountCompanyCcy,
		ExchangeRate:     e.ExchangeRate,
		Description:      e.Description,
		ExpenseStatus:    e.ExpenseStatus,
		ExpenseDate:      e.ExpenseDate,
		SubmittedAt:      e.SubmittedAt,
		ApprovedAt:       e.ApprovedAt,
		RejectedAt:       e.RejectedAt,
		PaidAt:           e.PaidAt,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func FromDataModelSlice(expenses []*expenseDatamodel.Expense) []*Expense {
	result := make([]*Expense, len(expenses))
	for i, e := range expenses {
		result[i] = FromDataModel(e)
	}
	return result
}
