package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/domain"
)

// GormAccountRepository implements AccountRepository using GORM.
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GORM-based account repository.
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

func (r *GormAccountRepository) Create(ctx context.Context, account *domain.Account, profile *domain.Profile) error {
	account.ID = uuid.New().String()
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	profile.ID = account.ID

	accountModel := domain.AccountToModel(account)
	profileModel := domain.ProfileToModel(profile)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(accountModel).Error; err != nil {
			return handleError(err)
		}
		return tx.Create(profileModel).Error
	})
	if err != nil {
		return err
	}

	account.CreatedAt = accountModel.CreatedAt
	account.UpdatedAt = accountModel.UpdatedAt
	profile.CreatedAt = profileModel.CreatedAt
	return nil
}

func (r *GormAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var model domain.AccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var model domain.AccountModel
	err := r.db.WithContext(ctx).First(&model, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// handleError converts driver-specific unique violations to domain errors.
func handleError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailExists
	}

	errStr := err.Error()

	// PostgreSQL, SQLite
	if strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "UNIQUE constraint") {
		if strings.Contains(errStr, "email") {
			return ErrEmailExists
		}
	}

	// MySQL
	if strings.Contains(errStr, "Duplicate entry") && strings.Contains(errStr, "email") {
		return ErrEmailExists
	}

	return err
}
