package postgres

import (
	"context"

	"github.com/clearspend/expense-approval/internal"
	userDatamodel "github.com/clearspend/expense-approval/internal/core/datamodel/user"
	"github.com/clearspend/expense-approval/internal/user"
	"gorm.io/gorm"
)

// UserRepository implements the user.Repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&u), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&u), nil
}

// ManagerOf resolves the direct manager of a user. Returns ErrUserNotFound
// when the user has no manager set.
func (r *UserRepository) ManagerOf(ctx context.Context, userID int64) (*user.User, error) {
	var u userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}

	if u.ManagerID == nil {
		return nil, internal.ErrUserNotFound
	}

	var mgr userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id = ?", *u.ManagerID).First(&mgr).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&mgr), nil
}

// ActiveByRole returns active users of a company holding the given role,
// ordered by ascending id. The ordering is what makes role-based approver
// resolution reproducible.
func (r *UserRepository) ActiveByRole(ctx context.Context, companyID int64, role string) ([]*user.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND role = ? AND is_active = ?", companyID, role, true).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return user.FromDataModelSlice(users), nil
}

func (r *UserRepository) ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*user.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return user.FromDataModelSlice(users), nil
}

func (r *UserRepository) PermissionsFor(ctx context.Context, userID int64) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Table("user_permissions").
		Select("permissions.name").
		Joins("JOIN permissions ON permissions.id = user_permissions.permission_id").
		Where("user_permissions.user_id = ?", userID).
		Scan(&names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}
