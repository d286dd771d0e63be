package expense

import (
	"context"
	"log/slog"
	"time"

	"github.com/clearspend/expense-approval/internal"
	"github.com/clearspend/expense-approval/internal/user"
)

// Repository defines the data access methods for expenses
type Repository interface {
	Create(ctx context.Context, exp *Expense) error
	GetByID(ctx context.Context, id int64) (*Expense, error)
	GetBySubmitter(ctx context.Context, submitterID int64, limit, offset int) ([]*Expense, error)
	GetByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*Expense, error)
	Update(ctx context.Context, exp *Expense) error
}

// CurrencyConverter is the external rate collaborator. The result is frozen
// onto the expense at creation; the engine never converts again.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount int64, fromCcy, toCcy string) (converted int64, rate float64, err error)
}

// CompanyDirectory provides the company currency for conversion snapshots.
type CompanyDirectory interface {
	CompanyCurrency(ctx context.Context, companyID int64) (string, error)
}

// Service handles the draft side of the expense lifecycle. Submission and
// everything after it belong to the workflow engine.
type Service struct {
	repo      Repository
	companies CompanyDirectory
	converter CurrencyConverter
	logger    *slog.Logger
}

func NewService(repo Repository, companies CompanyDirectory, converter CurrencyConverter, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		companies: companies,
		converter: converter,
		logger:    logger,
	}
}

// CreateExpense creates a draft. The company-currency amount and exchange
// rate are computed here, once, and never recomputed.
func (s *Service) CreateExpense(ctx context.Context, actor *user.User, dto CreateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("expense validation failed", "error", err, "user_id", actor.ID)
		return nil, err
	}

	companyCcy, err := s.companies.CompanyCurrency(ctx, actor.CompanyID)
	if err != nil {
		s.logger.Error("failed to resolve company currency", "error", err, "company_id", actor.CompanyID)
		return nil, err
	}

	converted, rate, err := s.converter.Convert(ctx, dto.Amount, dto.CurrencyCode, companyCcy)
	if err != nil {
		s.logger.Error("currency conversion failed",
			"error", err,
			"from", dto.CurrencyCode,
			"to", companyCcy)
		return nil, internal.NewInternalError("currency conversion failed", err)
	}

	now := time.Now()
	exp := &Expense{
		CompanyID:        actor.CompanyID,
		SubmitterID:      actor.ID,
		CategoryID:       dto.CategoryID,
		Amount:           dto.Amount,
		CurrencyCode:     dto.CurrencyCode,
		AmountCompanyCcy: converted,
		ExchangeRate:     rate,
		Description:      dto.Description,
		ExpenseStatus:    StatusDraft,
		ExpenseDate:      dto.ExpenseDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, exp); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", actor.ID)
		return nil, err
	}

	s.logger.Info("expense draft created",
		"expense_id", exp.ID,
		"user_id", actor.ID,
		"amount", dto.Amount,
		"amount_company_ccy", converted)
	return exp, nil
}

// GetExpenseByID retrieves an expense scoped to the actor's company. Regular
// employees can only see their own expenses.
func (s *Service) GetExpenseByID(ctx context.Context, id int64, actor *user.User) (*Expense, error) {
	exp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.ErrExpenseNotFound
	}
	if !actor.SameCompany(exp.CompanyID) {
		return nil, internal.ErrExpenseNotFound
	}
	if exp.SubmitterID != actor.ID && !actor.HasAnyPermission([]string{"approve_expenses", "reject_expenses", "admin"}) {
		s.logger.Warn("unauthorized access to expense", "expense_id", id, "user_id", actor.ID)
		return nil, internal.ErrUnauthorizedAccess
	}
	return exp, nil
}

func (s *Service) GetUserExpenses(ctx context.Context, userID int64, limit, offset int) ([]*Expense, error) {
	expenses, err := s.repo.GetBySubmitter(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error("failed to get user expenses", "error", err, "user_id", userID)
		return nil, err
	}
	return expenses, nil
}

func (s *Service) GetCompanyExpenses(ctx context.Context, actor *user.User, limit, offset int) ([]*Expense, error) {
	if !actor.HasAnyPermission([]string{"approve_expenses", "reject_expenses", "admin"}) {
		return nil, internal.ErrUnauthorizedAccess
	}
	expenses, err := s.repo.GetByCompany(ctx, actor.CompanyID, limit, offset)
	if err != nil {
		s.logger.Error("failed to get company expenses", "error", err, "company_id", actor.CompanyID)
		return nil, err
	}
	return expenses, nil
}

// UpdateExpense applies submitter edits. Only drafts and rejected expenses
// are editable; editing a rejected expense returns it to draft so it can be
// resubmitted through a fresh approval chain.
func (s *Service) UpdateExpense(ctx context.Context, id int64, actor *user.User, dto UpdateExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.ErrExpenseNotFound
	}
	if exp.SubmitterID != actor.ID {
		return nil, internal.ErrUnauthorizedAccess
	}
	if !exp.IsEditable() {
		return nil, internal.ErrCannotModifyExpense
	}

	recompute := false
	if dto.Amount != nil {
		exp.Amount = *dto.Amount
		recompute = true
	}
	if dto.CurrencyCode != nil {
		exp.CurrencyCode = *dto.CurrencyCode
		recompute = true
	}
	if dto.CategoryID != nil {
		exp.CategoryID = dto.CategoryID
	}
	if dto.Description != nil {
		exp.Description = *dto.Description
	}
	if dto.ExpenseDate != nil {
		exp.ExpenseDate = *dto.ExpenseDate
	}

	if recompute {
		companyCcy, err := s.companies.CompanyCurrency(ctx, exp.CompanyID)
		if err != nil {
			return nil, err
		}
		converted, rate, err := s.converter.Convert(ctx, exp.Amount, exp.CurrencyCode, companyCcy)
		if err != nil {
			return nil, internal.NewInternalError("currency conversion failed", err)
		}
		exp.AmountCompanyCcy = converted
		exp.ExchangeRate = rate
	}

	exp.ExpenseStatus = StatusDraft
	exp.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, exp); err != nil {
		s.logger.Error("failed to update expense", "error", err, "expense_id", id)
		return nil, err
	}
	return exp, nil
}
