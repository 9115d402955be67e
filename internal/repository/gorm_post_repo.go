package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/internal/ids"
)

// GormPostRepository implements PostRepository using GORM.
type GormPostRepository struct {
	db  *gorm.DB
	ids ids.Generator
}

// NewGormPostRepository creates a new GORM-based post repository.
func NewGormPostRepository(db *gorm.DB, gen ids.Generator) *GormPostRepository {
	return &GormPostRepository{db: db, ids: gen}
}

func (r *GormPostRepository) List(ctx context.Context, threadID *string) ([]*domain.Post, error) {
	q := r.db.WithContext(ctx).Preload("Author")
	if threadID != nil {
		q = q.Where("thread_id = ?", *threadID)
	}

	var models []domain.PostModel
	if err := q.Order("created_at DESC").Order("id DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	posts := make([]*domain.Post, 0, len(models))
	for i := range models {
		posts = append(posts, models[i].ToDomain())
	}
	return posts, nil
}

func (r *GormPostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	var model domain.PostModel
	if err := r.db.WithContext(ctx).Preload("Author").First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormPostRepository) Create(ctx context.Context, post *domain.Post) error {
	if post.ID == "" {
		post.ID = r.ids.NewID()
	}

	model := domain.PostToModel(post)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	post.CreatedAt = model.CreatedAt
	return nil
}
