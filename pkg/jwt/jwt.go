package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrRevokedToken = errors.New("token has been revoked")
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims represents JWT claims. SessionID is shared by the access and refresh
// token of one sign-in so that signing out revokes both.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	SessionID string `json:"sid"`
	Type      string `json:"type"`
}

// TokenPair is the result of a sign-in or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  int64
	RefreshExpiresAt int64
	SessionID        string
}

// Identity is the subject a token pair is issued for.
type Identity struct {
	UserID   string
	Email    string
	Username string
}

// Manager signs and validates RS256 tokens.
type Manager struct {
	privateKey      *rsa.PrivateKey
	publicKey       *rsa.PublicKey
	accessDuration  time.Duration
	refreshDuration time.Duration
	issuer          string
	revocations     RevocationStore
}

// Options configures a Manager.
type Options struct {
	AccessDuration  time.Duration
	RefreshDuration time.Duration
	Issuer          string
	// PrivateKeyPEM is an optional PKCS#1/PKCS#8 RSA key. A fresh 2048-bit key
	// is generated when empty, which invalidates tokens on restart.
	PrivateKeyPEM string
	Revocations   RevocationStore
}

// NewManager creates a new JWT manager.
func NewManager(opts Options) (*Manager, error) {
	var (
		privateKey *rsa.PrivateKey
		err        error
	)
	if opts.PrivateKeyPEM != "" {
		privateKey, err = jwt.ParseRSAPrivateKeyFromPEM([]byte(opts.PrivateKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
	} else {
		privateKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, err
		}
	}

	revocations := opts.Revocations
	if revocations == nil {
		revocations = NewMemoryRevocationStore()
	}

	return &Manager{
		privateKey:      privateKey,
		publicKey:       &privateKey.PublicKey,
		accessDuration:  opts.AccessDuration,
		refreshDuration: opts.RefreshDuration,
		issuer:          opts.Issuer,
		revocations:     revocations,
	}, nil
}

// GenerateTokenPair starts a new session for id and signs its token pair.
func (m *Manager) GenerateTokenPair(id Identity) (*TokenPair, error) {
	return m.generate(id, uuid.New().String())
}

func (m *Manager) generate(id Identity, sessionID string) (*TokenPair, error) {
	now := time.Now()
	accessExp := now.Add(m.accessDuration)
	refreshExp := now.Add(m.refreshDuration)

	access, err := m.signToken(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
			ID:        uuid.New().String(),
		},
		UserID:    id.UserID,
		Email:     id.Email,
		Username:  id.Username,
		SessionID: sessionID,
		Type:      TypeAccess,
	})
	if err != nil {
		return nil, err
	}

	refresh, err := m.signToken(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
			ID:        uuid.New().String(),
		},
		UserID:    id.UserID,
		Email:     id.Email,
		Username:  id.Username,
		SessionID: sessionID,
		Type:      TypeRefresh,
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp.Unix(),
		RefreshExpiresAt: refreshExp.Unix(),
		SessionID:        sessionID,
	}, nil
}

// ValidateToken parses tokenString and checks signature, expiry and
// revocation of its session.
func (m *Manager) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		return m.publicKey, nil
	}, jwt.WithIssuer(m.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	revoked, err := m.revocations.IsRevoked(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}

	return claims, nil
}

// ValidateAccessToken is ValidateToken restricted to access tokens.
func (m *Manager) ValidateAccessToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := m.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RefreshTokens rotates a valid refresh token into a new pair for the same
// session.
func (m *Manager) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, *Claims, error) {
	claims, err := m.ValidateToken(ctx, refreshToken)
	if err != nil {
		return nil, nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, nil, ErrInvalidToken
	}

	pair, err := m.generate(Identity{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Username: claims.Username,
	}, claims.SessionID)
	if err != nil {
		return nil, nil, err
	}
	return pair, claims, nil
}

// RevokeSession revokes every token of a session until the longest token
// lifetime has passed.
func (m *Manager) RevokeSession(ctx context.Context, sessionID string) error {
	return m.revocations.Revoke(ctx, sessionID, time.Now().Add(m.refreshDuration))
}

// AccessDuration returns the access token lifetime.
func (m *Manager) AccessDuration() time.Duration {
	return m.accessDuration
}

func (m *Manager) signToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(m.privateKey)
}
