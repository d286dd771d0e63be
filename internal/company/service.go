package company

import (
	"context"
	"log/slog"

	"github.com/clearspend/expense-approval/internal"
	"github.com/clearspend/expense-approval/internal/workflow"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Company, error)
	ActiveWorkflows(ctx context.Context, companyID int64) ([]*Workflow, error)
}

// Service loads companies and turns their stored workflow rows into typed
// workflow configs. It satisfies workflow.ConfigSource.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetCompany(ctx context.Context, id int64) (*Company, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get company", "error", err, "company_id", id)
		return nil, internal.ErrCompanyNotFound
	}
	return c, nil
}

// CompanyCurrency returns the company's reporting currency. It satisfies
// the expense service's directory dependency.
func (s *Service) CompanyCurrency(ctx context.Context, companyID int64) (string, error) {
	c, err := s.GetCompany(ctx, companyID)
	if err != nil {
		return "", err
	}
	return c.CurrencyCode, nil
}

// ActiveConfig picks the applicable workflow for the company and parses it.
// Among active workflows the highest priority wins; equal priorities break on
// lowest workflow id (the repository returns them in that order). A company
// with no active workflow gets the disabled config: its expenses auto-approve.
func (s *Service) ActiveConfig(ctx context.Context, companyID int64) (*workflow.Config, error) {
	rows, err := s.repo.ActiveWorkflows(ctx, companyID)
	if err != nil {
		s.logger.Error("failed to load workflows", "error", err, "company_id", companyID)
		return nil, err
	}
	if len(rows) == 0 {
		return workflow.Disabled(), nil
	}

	selected := rows[0]
	cfg, err := workflow.ParseConfig(selected.WorkflowType, selected.Priority, selected.Rules)
	if err != nil {
		s.logger.Error("workflow configuration invalid",
			"error", err,
			"company_id", companyID,
			"workflow_id", selected.ID)
		return nil, err
	}
	return cfg, nil
}
