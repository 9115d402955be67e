package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/internal/repository"
	"github.com/campusconnect/campus/internal/service"
	"github.com/campusconnect/campus/pkg/log"
	"github.com/campusconnect/campus/pkg/middleware"
	"github.com/campusconnect/campus/pkg/response"
)

const invalidCredentialsMessage = "Invalid login credentials"

// Signup handles account creation.
func (h *Handler) Signup(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid signup request")
		if verr := service.ValidateSignup(&req); verr != nil {
			response.BadRequest(c, sentence(verr))
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Signup(ctx, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail),
			errors.Is(err, service.ErrPasswordTooShort),
			errors.Is(err, service.ErrUsernameRequired):
			response.BadRequest(c, sentence(err))
		case errors.Is(err, repository.ErrEmailExists):
			response.Conflict(c, "User already registered")
		default:
			l.Error().Err(err).Msg("signup failed")
			response.InternalError(c, "failed to sign up")
		}
		return
	}

	h.setSessionCookie(c, result)
	response.Redirect(c, http.StatusCreated, "/", result)
}

// Login handles sign-in with email and password.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid login request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Login(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, invalidCredentialsMessage)
			return
		}
		l.Error().Err(err).Msg("login failed")
		response.InternalError(c, "failed to login")
		return
	}

	h.setSessionCookie(c, result)
	response.Redirect(c, http.StatusOK, "/", result)
}

// RefreshToken exchanges a refresh token for a new pair in the same session.
func (h *Handler) RefreshToken(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid refresh token request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Refresh(ctx, &req)
	if err != nil {
		l.Warn().Err(err).Msg("refresh token failed")
		response.Unauthorized(c, "invalid or expired refresh token")
		return
	}

	h.setSessionCookie(c, result)
	response.Success(c, result)
}

// Logout revokes the current session and discards the user's chat screens.
func (h *Handler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return
	}

	if err := h.authService.Logout(ctx, userID, middleware.GetSessionID(c)); err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("logout failed")
		response.InternalError(c, "failed to logout")
		return
	}
	h.chats.CloseOwner(userID)

	h.clearSessionCookie(c)
	response.Redirect(c, http.StatusOK, middleware.LoginPath, nil)
}

// Session returns the signed-in user.
func (h *Handler) Session(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)

	user, err := h.authService.Session(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "unauthorized")
			return
		}
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("get session failed")
		response.InternalError(c, "failed to get session")
		return
	}

	response.Success(c, user)
}

func (h *Handler) setSessionCookie(c *gin.Context, auth *domain.AuthResponse) {
	maxAge := int(time.Until(time.Unix(auth.ExpiresAt, 0)).Seconds())
	if maxAge <= 0 {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessCookie, auth.AccessToken, maxAge, "/", "", h.opts.SecureCookies, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessCookie, "", -1, "/", "", h.opts.SecureCookies, true)
}
