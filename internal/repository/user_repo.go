package repository

import (
	"context"

	"github.com/google/uuid"
	"glowshot.app/glowshotcore/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByReferralCode(ctx context.Context, code string) (*model.User, error)
	// EnsureUser creates the row if the username is new and returns the
	// stored user either way.
	EnsureUser(ctx context.Context, username string) (*model.User, error)
	SetReferralCode(ctx context.Context, userID uuid.UUID, code string) error
	PromoteToAdmin(ctx context.Context, userID uuid.UUID) error
	ListAdmins(ctx context.Context) ([]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByReferralCode(ctx context.Context, code string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) EnsureUser(ctx context.Context, username string) (*model.User, error) {
	user := model.User{Username: username}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, DoNothing: true}).
		Create(&user).Error
	if err != nil {
		return nil, err
	}
	// DoNothing leaves ID empty when the row already existed
	return r.FindByUsername(ctx, username)
}

func (r *userRepository) SetReferralCode(ctx context.Context, userID uuid.UUID, code string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("referral_code", code).Error
}

func (r *userRepository) PromoteToAdmin(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("is_admin", true).Error
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]model.User, error) {
	var admins []model.User
	err := r.db.WithContext(ctx).Where("is_admin = ?", true).Find(&admins).Error
	return admins, err
}
