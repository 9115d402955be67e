package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/internal/ids"
)

// GormCommentRepository implements CommentRepository using GORM.
type GormCommentRepository struct {
	db  *gorm.DB
	ids ids.Generator
}

// NewGormCommentRepository creates a new GORM-based comment repository.
func NewGormCommentRepository(db *gorm.DB, gen ids.Generator) *GormCommentRepository {
	return &GormCommentRepository{db: db, ids: gen}
}

func (r *GormCommentRepository) ListByPost(ctx context.Context, postID string) ([]*domain.Comment, error) {
	var models []domain.CommentModel
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	comments := make([]*domain.Comment, 0, len(models))
	for i := range models {
		comments = append(comments, models[i].ToDomain())
	}
	return comments, nil
}

func (r *GormCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	if comment.ID == "" {
		comment.ID = r.ids.NewID()
	}

	model := domain.CommentToModel(comment)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	comment.CreatedAt = model.CreatedAt
	return nil
}
