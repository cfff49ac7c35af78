package users

import (
	"context"
	"time"

	"github.com/bozorchi/shop-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminRepository exposes persistence for the single admin account.
type AdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository constructs an admin repo bound to the provided GORM DB.
func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// FindByID loads the admin by UUID.
func (r *AdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).First(&admin, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// FindByPhone retrieves the admin matching the provided phone number.
func (r *AdminRepository) FindByPhone(ctx context.Context, phone string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// First returns the admin account. The deployment provisions exactly one.
func (r *AdminRepository) First(ctx context.Context) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).Order("created_at ASC").First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// UpdateLastLogin refreshes the admin's last_login_at timestamp.
func (r *AdminRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Admin{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdatePassword stores a new password hash and bumps the token version.
func (r *AdminRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Admin{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"token_version": gorm.Expr("token_version + 1"),
		}).Error
}
