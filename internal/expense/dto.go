package expense

import (
	"time"

	"github.com/clearspend/expense-approval/internal"
	"github.com/clearspend/expense-approval/internal/core/common/validation"
)

// CreateExpenseDTO is the payload for creating a draft expense. Amount is in
// minor units of CurrencyCode.
type CreateExpenseDTO struct {
	Amount       int64     `json:"amount"`
	CurrencyCode string    `json:"currency_code"`
	CategoryID   *int64    `json:"category_id,omitempty"`
	Description  string    `json:"description"`
	ExpenseDate  time.Time `json:"expense_date"`
}

func (dto CreateExpenseDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("amount", dto.Amount).Required().Positive()
	v.Field("currency_code", dto.CurrencyCode).Required().Length(3, 3)
	v.Field("description", dto.Description).Required().MaxLength(500)
	if dto.ExpenseDate.IsZero() {
		return internal.NewValidationFieldError("expense_date", "expense date is required", internal.ErrCodeValidationFailed)
	}
	if dto.ExpenseDate.After(time.Now()) {
		return internal.NewValidationFieldError("expense_date", "expense date cannot be in the future", internal.ErrCodeValidationFailed)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateExpenseDTO carries submitter edits to a draft or rejected expense.
type UpdateExpenseDTO struct {
	Amount       *int64     `json:"amount,omitempty"`
	CurrencyCode *string    `json:"currency_code,omitempty"`
	CategoryID   *int64     `json:"category_id,omitempty"`
	Description  *string    `json:"description,omitempty"`
	ExpenseDate  *time.Time `json:"expense_date,omitempty"`
}

func (dto UpdateExpenseDTO) Validate() error {
	if dto.Amount != nil && *dto.Amount <= 0 {
		return internal.NewValidationFieldError("amount", "amount must be positive", internal.ErrCodeInvalidAmount)
	}
	if dto.CurrencyCode != nil && len(*dto.CurrencyCode) != 3 {
		return internal.NewValidationFieldError("currency_code", "currency code must be 3 letters", internal.ErrCodeValidationFailed)
	}
	if dto.Description != nil {
		if *dto.Description == "" {
			return internal.NewValidationFieldError("description", "description is required", internal.ErrCodeInvalidDescription)
		}
		if len(*dto.Description) > 500 {
			return internal.NewValidationFieldError("description", "description must be less than 500 characters", internal.ErrCodeInvalidDescription)
		}
	}
	if dto.ExpenseDate != nil && dto.ExpenseDate.After(time.Now()) {
		return internal.NewValidationFieldError("expense_date", "expense date cannot be in the future", internal.ErrCodeValidationFailed)
	}
	return nil
}
