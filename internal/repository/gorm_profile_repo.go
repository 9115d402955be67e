package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/domain"
)

// GormProfileRepository implements ProfileRepository using GORM.
type GormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GORM-based profile repository.
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

func (r *GormProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *GormProfileRepository) Update(ctx context.Context, id, username, college string) (*domain.Profile, error) {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"username": username,
		"college":  college,
	})
}

func (r *GormProfileRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) (*domain.Profile, error) {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"avatar_url": avatarURL,
	})
}

func (r *GormProfileRepository) updateColumns(ctx context.Context, id string, columns map[string]interface{}) (*domain.Profile, error) {
	var profile *domain.Profile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.ProfileModel{}).Where("id = ?", id).Updates(columns).Error; err != nil {
			return err
		}
		// RowsAffected is zero on MySQL when values are unchanged, so
		// existence is checked by reading back.
		p, err := r.get(tx, id)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *GormProfileRepository) get(db *gorm.DB, id string) (*domain.Profile, error) {
	var model domain.ProfileModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
