package repository

import (
	"context"
	"errors"

	"github.com/campusconnect/campus/internal/domain"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailExists     = errors.New("email already exists")
	ErrProfileNotFound = errors.New("profile not found")
	ErrThreadNotFound  = errors.New("thread not found")
	ErrPostNotFound    = errors.New("post not found")
)

// AccountRepository persists identities.
type AccountRepository interface {
	// Create inserts the account and its profile in one transaction. Both
	// receive the generated account id.
	Create(ctx context.Context, account *domain.Account, profile *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// ProfileRepository persists profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	// Update writes username and college together and returns the stored row.
	Update(ctx context.Context, id, username, college string) (*domain.Profile, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (*domain.Profile, error)
}

// ThreadRepository persists threads.
type ThreadRepository interface {
	List(ctx context.Context) ([]*domain.Thread, error)
	GetByID(ctx context.Context, id string) (*domain.Thread, error)
	// EnsureTitle creates a thread with title unless one exists.
	EnsureTitle(ctx context.Context, title string) (*domain.Thread, bool, error)
}

// PostRepository persists posts.
type PostRepository interface {
	// List returns posts newest first with author profiles; threadID nil
	// means every thread.
	List(ctx context.Context, threadID *string) ([]*domain.Post, error)
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	Create(ctx context.Context, post *domain.Post) error
}

// CommentRepository persists comments.
type CommentRepository interface {
	ListByPost(ctx context.Context, postID string) ([]*domain.Comment, error)
	Create(ctx context.Context, comment *domain.Comment) error
}
