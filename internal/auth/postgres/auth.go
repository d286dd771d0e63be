package postgres

import (
	"context"

	"github.com/clearspend/expense-approval/internal"
	"github.com/clearspend/expense-approval/internal/auth"
	userDatamodel "github.com/clearspend/expense-approval/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type AuthRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) auth.CredentialsRepository {
	return &AuthRepository{db: db}
}

// GetCredentials returns the stored hash for an active user's email. Inactive
// accounts cannot log in.
func (r *AuthRepository) GetCredentials(ctx context.Context, email string) (string, int64, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", 0, internal.ErrInvalidCredentials
		}
		return "", 0, err
	}
	if !u.IsActive {
		return "", 0, internal.ErrUserInactive
	}
	return u.PasswordHash, u.ID, nil
}
