package user

import (
	"context"
	"log/slog"

	"github.com/clearspend/expense-approval/internal"
)

// Repository defines the user directory lookups the rest of the service
// depends on. ActiveByRole must return users ordered by ascending id so that
// role-based approver resolution stays deterministic.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ManagerOf(ctx context.Context, userID int64) (*User, error)
	ActiveByRole(ctx context.Context, companyID int64, role string) ([]*User, error)
	ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*User, error)
	PermissionsFor(ctx context.Context, userID int64) ([]string, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get user", "error", err, "user_id", id)
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

// GetUserWithPermissions loads the user plus their granted permission names,
// used by the auth middleware to populate the request context.
func (s *Service) GetUserWithPermissions(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}

	perms, err := s.repo.PermissionsFor(ctx, id)
	if err != nil {
		s.logger.Error("failed to load permissions", "error", err, "user_id", id)
		return nil, err
	}
	u.Permissions = perms
	return u, nil
}

func (s *Service) ListCompanyUsers(ctx context.Context, companyID int64, limit, offset int) ([]*User, error) {
	users, err := s.repo.ListByCompany(ctx, companyID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list company users", "error", err, "company_id", companyID)
		return nil, err
	}
	return users, nil
}
