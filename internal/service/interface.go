package service

import (
	"context"
	"errors"
	"io"

	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordTooShort   = errors.New("password should be at least 6 characters")
	ErrUsernameRequired   = errors.New("username is required")
	ErrThreadRequired     = errors.New("a thread must be selected")
	ErrEmptyContent       = errors.New("content must not be empty")
	ErrContentTooLong     = errors.New("content is too long")
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6

	// MaxContentLength caps posts and comments, in characters.
	MaxContentLength = 4000
)

// TokenIssuer issues and revokes session tokens.
type TokenIssuer interface {
	GenerateTokenPair(id jwt.Identity) (*jwt.TokenPair, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*jwt.TokenPair, *jwt.Claims, error)
	RevokeSession(ctx context.Context, sessionID string) error
}

// AuthService defines sign-up, sign-in and session operations.
type AuthService interface {
	Signup(ctx context.Context, req *domain.SignupRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
	Refresh(ctx context.Context, req *domain.RefreshTokenRequest) (*domain.AuthResponse, error)
	Logout(ctx context.Context, userID, sessionID string) error
	Session(ctx context.Context, userID string) (*domain.SessionUser, error)
}

// ProfileService defines profile operations of the signed-in user.
type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.Profile, error)
	UploadAvatar(ctx context.Context, userID string, image io.Reader) (*domain.Profile, error)
}

// FeedService defines thread, post and comment operations.
type FeedService interface {
	SeedThreads(ctx context.Context, titles []string) error
	ListThreads(ctx context.Context) ([]*domain.Thread, error)
	ListPosts(ctx context.Context, threadID *string) ([]*domain.Post, error)
	CreatePost(ctx context.Context, authorID string, req *domain.CreatePostRequest) (*domain.Post, error)
	ListComments(ctx context.Context, postID string) ([]*domain.Comment, error)
	CreateComment(ctx context.Context, authorID, postID string, req *domain.CreateCommentRequest) (*domain.Comment, error)
}
