package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/campus/pkg/jwt"
	"github.com/campusconnect/campus/pkg/log"
	"github.com/campusconnect/campus/pkg/response"
)

const (
	UserIDKey     = log.FieldUserID
	EmailKey      = "email"
	UsernameKey   = log.FieldUsername
	SessionIDKey  = log.FieldSessionID
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	AccessCookie  = "access_token"
	LoginPath     = "/login"
)

// TokenValidator validates an access token and returns its claims.
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*jwt.Claims, error)
}

// AuthMiddleware authenticates requests against a TokenValidator.
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// RequireAuth aborts API requests without a valid session with 401.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing authorization")
			return
		}

		claims, err := m.validator.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// RequirePage redirects page requests without a valid session to the login
// page.
func (m *AuthMiddleware) RequirePage() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}

		claims, err := m.validator.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth populates the identity when a valid token is present.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			if claims, err := m.validator.ValidateAccessToken(c.Request.Context(), token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader(AuthHeaderKey); strings.HasPrefix(header, BearerPrefix) {
		return strings.TrimPrefix(header, BearerPrefix)
	}
	if cookie, err := c.Cookie(AccessCookie); err == nil {
		return cookie
	}
	return ""
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(EmailKey, claims.Email)
	c.Set(UsernameKey, claims.Username)
	c.Set(SessionIDKey, claims.SessionID)
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetUsername extracts username from Gin context.
func GetUsername(c *gin.Context) string {
	return c.GetString(UsernameKey)
}

// GetEmail extracts email from Gin context.
func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}

// GetSessionID extracts the session ID from Gin context.
func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}
