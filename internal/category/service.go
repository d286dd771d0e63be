package category

import (
	"context"
	"log/slog"

	internal "github.com/clearspend/expense-approval/internal"
)

type Repository interface {
	ListActiveByCompany(ctx context.Context, companyID int64) ([]*Category, error)
	GetByID(ctx context.Context, id int64) (*Category, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ListCategories returns the active expense categories for a company.
func (s *Service) ListCategories(ctx context.Context, companyID int64) ([]*Category, error) {
	categories, err := s.repo.ListActiveByCompany(ctx, companyID)
	if err != nil {
		s.logger.Error("failed to list categories",
			"company_id", companyID,
			"error", err)
		return nil, internal.NewInternalError("failed to list categories", err)
	}
	return categories, nil
}

// GetCategory returns a single category scoped to the caller's company.
func (s *Service) GetCategory(ctx context.Context, companyID, categoryID int64) (*Category, error) {
	cat, err := s.repo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if cat.CompanyID != companyID {
		return nil, internal.NewNotFoundError("category not found", internal.ErrCodeInvalidCategory)
	}
	return cat, nil
}
