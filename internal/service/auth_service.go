package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusconnect/campus/internal/audit"
	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/internal/repository"
	"github.com/campusconnect/campus/pkg/jwt"
	"github.com/campusconnect/campus/pkg/log"
	"github.com/campusconnect/campus/pkg/pubsub"
)

type authServiceImpl struct {
	accounts   repository.AccountRepository
	profiles   repository.ProfileRepository
	tokens     TokenIssuer
	publisher  pubsub.Publisher
	bcryptCost int
}

// NewAuthService creates a new auth service.
func NewAuthService(
	accounts repository.AccountRepository,
	profiles repository.ProfileRepository,
	tokens TokenIssuer,
	publisher pubsub.Publisher,
	bcryptCost int,
) AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &authServiceImpl{
		accounts:   accounts,
		profiles:   profiles,
		tokens:     tokens,
		publisher:  publisher,
		bcryptCost: bcryptCost,
	}
}

// validate applies the same rules gin uses for request binding.
var validate = validator.New()

// ValidateSignup checks a sign-up request without touching any store.
func ValidateSignup(req *domain.SignupRequest) error {
	if err := validate.Var(strings.TrimSpace(req.Email), "required,email"); err != nil {
		return ErrInvalidEmail
	}
	if len(req.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if strings.TrimSpace(req.Username) == "" {
		return ErrUsernameRequired
	}
	return nil
}

func (s *authServiceImpl) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	if err := ValidateSignup(req); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash password")
		return nil, err
	}

	account := &domain.Account{
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
	}
	profile := &domain.Profile{
		Username: strings.TrimSpace(req.Username),
	}

	if err := s.accounts.Create(ctx, account, profile); err != nil {
		if !errors.Is(err, repository.ErrEmailExists) {
			l.Error().Err(err).Msg("failed to create account")
		}
		return nil, err
	}

	resp, err := s.issue(ctx, account, profile)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionSignup, account.ID, "account created")
	return resp, nil
}

func (s *authServiceImpl) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	account, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, "", req.Email, "login failed: account not found")
			return nil, ErrInvalidCredentials
		}
		l.Error().Err(err).Msg("failed to get account by email")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, account.ID, req.Email, "login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	profile, err := s.profiles.GetByID(ctx, account.ID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, account.ID).Msg("failed to get profile for login")
		return nil, err
	}

	resp, err := s.issue(ctx, account, profile)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionLogin, account.ID, "user logged in")
	return resp, nil
}

func (s *authServiceImpl) Refresh(ctx context.Context, req *domain.RefreshTokenRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	pair, claims, err := s.tokens.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		l.Warn().Err(err).Msg("failed to refresh token")
		return nil, ErrInvalidCredentials
	}

	audit.Log(ctx, audit.ActionRefreshToken, claims.UserID, "token refreshed")

	return &domain.AuthResponse{
		User: domain.SessionUser{
			ID:       claims.UserID,
			Email:    claims.Email,
			Username: claims.Username,
		},
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		ExpiresAt:        pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

func (s *authServiceImpl) Logout(ctx context.Context, userID, sessionID string) error {
	l := log.Ctx(ctx)

	if err := s.tokens.RevokeSession(ctx, sessionID); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to revoke session")
		return err
	}

	s.publishAuthState(ctx, pubsub.EventSignedOut, userID, sessionID)
	audit.Log(ctx, audit.ActionLogout, userID, "user logged out")
	return nil
}

func (s *authServiceImpl) Session(ctx context.Context, userID string) (*domain.SessionUser, error) {
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.SessionUser{
		ID:       account.ID,
		Email:    account.Email,
		Username: profile.Username,
	}, nil
}

func (s *authServiceImpl) issue(ctx context.Context, account *domain.Account, profile *domain.Profile) (*domain.AuthResponse, error) {
	pair, err := s.tokens.GenerateTokenPair(jwt.Identity{
		UserID:   account.ID,
		Email:    account.Email,
		Username: profile.Username,
	})
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldUserID, account.ID).Msg("failed to generate tokens")
		return nil, err
	}

	s.publishAuthState(ctx, pubsub.EventSignedIn, account.ID, pair.SessionID)

	return &domain.AuthResponse{
		User: domain.SessionUser{
			ID:       account.ID,
			Email:    account.Email,
			Username: profile.Username,
		},
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		ExpiresAt:        pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

// publishAuthState announces a session transition. Delivery is best effort.
func (s *authServiceImpl) publishAuthState(ctx context.Context, eventType, userID, sessionID string) {
	event, err := pubsub.NewEvent(eventType, userID, pubsub.AuthStatePayload{
		UserID:    userID,
		SessionID: sessionID,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, pubsub.ChannelAuth, event)
	}
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldChannel, pubsub.ChannelAuth).Str("event", eventType).Msg("failed to publish auth state")
	}
}
