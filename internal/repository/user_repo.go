package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openpayroll/batchpay/internal/domain"
)

// UserPatch carries the editable fields of a payee template; nil means
// unchanged.
type UserPatch struct {
	Name          *string
	Wallet        *string
	DefaultAmount *string
}

// UserRepository is the authoritative side of payee template CRUD. The
// optimistic user store confirms its provisional entities against it.
type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, id string, patch UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

type GormUserRepo struct {
	db *gorm.DB
}

func NewGormUserRepo(db *gorm.DB) *GormUserRepo {
	return &GormUserRepo{db: db}
}

func (r *GormUserRepo) List(ctx context.Context) ([]domain.User, error) {
	var models []UserModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(models))
	for i := range models {
		users = append(users, *userModelToDomain(&models[i]))
	}
	return users, nil
}

func (r *GormUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return userModelToDomain(&model), nil
}

func (r *GormUserRepo) Create(ctx context.Context, u *domain.User) error {
	if u == nil {
		return fmt.Errorf("%w: user is required", domain.ErrValidation)
	}

	u.Name = strings.TrimSpace(u.Name)
	u.Wallet = strings.TrimSpace(u.Wallet)
	if u.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if u.Wallet == "" {
		return fmt.Errorf("%w: wallet is required", domain.ErrValidation)
	}

	// Provisional tmp- ids from the optimistic store are never persisted;
	// the repository always assigns the authoritative id.
	u.ID = uuid.NewString()
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	model := userModelFromDomain(u)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	*u = *userModelToDomain(model)
	return nil
}

func (r *GormUserRepo) Update(ctx context.Context, id string, patch UserPatch) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		model.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Wallet != nil {
		model.Wallet = strings.TrimSpace(*patch.Wallet)
	}
	if patch.DefaultAmount != nil {
		model.DefaultAmount = strings.TrimSpace(*patch.DefaultAmount)
	}
	model.UpdatedAt = time.Now().UTC()

	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		return nil, err
	}
	return userModelToDomain(&model), nil
}

func (r *GormUserRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&UserModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
