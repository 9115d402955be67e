package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/internal/ids"
)

// GormThreadRepository implements ThreadRepository using GORM.
type GormThreadRepository struct {
	db  *gorm.DB
	ids ids.Generator
}

// NewGormThreadRepository creates a new GORM-based thread repository.
func NewGormThreadRepository(db *gorm.DB, gen ids.Generator) *GormThreadRepository {
	return &GormThreadRepository{db: db, ids: gen}
}

func (r *GormThreadRepository) List(ctx context.Context) ([]*domain.Thread, error) {
	var models []domain.ThreadModel
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	threads := make([]*domain.Thread, 0, len(models))
	for i := range models {
		threads = append(threads, models[i].ToDomain())
	}
	return threads, nil
}

func (r *GormThreadRepository) GetByID(ctx context.Context, id string) (*domain.Thread, error) {
	var model domain.ThreadModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormThreadRepository) EnsureTitle(ctx context.Context, title string) (*domain.Thread, bool, error) {
	var model domain.ThreadModel
	result := r.db.WithContext(ctx).
		Where(domain.ThreadModel{Title: title}).
		Attrs(domain.ThreadModel{ID: r.ids.NewID()}).
		FirstOrCreate(&model)
	if result.Error != nil {
		return nil, false, result.Error
	}
	return model.ToDomain(), result.RowsAffected > 0, nil
}
