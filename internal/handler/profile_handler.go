package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/campus/internal/avatar"
	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/internal/repository"
	"github.com/campusconnect/campus/pkg/log"
	"github.com/campusconnect/campus/pkg/middleware"
	"github.com/campusconnect/campus/pkg/response"
)

const profileUpdatedMessage = "Profile updated successfully!"

// GetProfile returns the signed-in user's profile and email.
func (h *Handler) GetProfile(c *gin.Context) {
	view, ok := h.profileView(c)
	if !ok {
		return
	}
	response.Success(c, view)
}

// UpdateProfile writes username and college as one full update. Failures
// carry the underlying error text.
func (h *Handler) UpdateProfile(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)

	var req domain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid update profile request")
		response.BadRequest(c, err.Error())
		return
	}

	profile, err := h.profileService.UpdateProfile(ctx, userID, &req)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("update profile failed")
		if errors.Is(err, repository.ErrProfileNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.SuccessMessage(c, profileUpdatedMessage, domain.ProfileView{
		Profile: profile,
		Email:   middleware.GetEmail(c),
	})
}

// UploadAvatar accepts a multipart "avatar" image and stores the processed
// square JPEG as the profile's avatar.
func (h *Handler) UploadAvatar(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.AvatarMaxBytes+(1<<20))
	fh, err := c.FormFile("avatar")
	if err != nil {
		l.Warn().Err(err).Msg("missing avatar file")
		response.BadRequest(c, "avatar file is required")
		return
	}
	if fh.Size > h.opts.AvatarMaxBytes {
		response.TooLarge(c, avatar.ErrTooLarge.Error())
		return
	}

	file, err := fh.Open()
	if err != nil {
		l.Error().Err(err).Msg("open avatar upload failed")
		response.InternalError(c, "failed to read upload")
		return
	}
	defer file.Close()

	profile, err := h.profileService.UploadAvatar(ctx, userID, file)
	if err != nil {
		switch {
		case errors.Is(err, avatar.ErrInvalidImage):
			response.BadRequest(c, err.Error())
		case errors.Is(err, avatar.ErrTooLarge):
			response.TooLarge(c, err.Error())
		case errors.Is(err, repository.ErrProfileNotFound):
			response.NotFound(c, err.Error())
		default:
			l.Error().Err(err).Str(log.FieldUserID, userID).Msg("upload avatar failed")
			response.InternalError(c, err.Error())
		}
		return
	}

	response.SuccessMessage(c, profileUpdatedMessage, domain.ProfileView{
		Profile: profile,
		Email:   middleware.GetEmail(c),
	})
}

func (h *Handler) profileView(c *gin.Context) (*domain.ProfileView, bool) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)

	profile, err := h.profileService.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			response.NotFound(c, "profile not found")
			return nil, false
		}
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("get profile failed")
		response.InternalError(c, err.Error())
		return nil, false
	}

	return &domain.ProfileView{Profile: profile, Email: middleware.GetEmail(c)}, true
}
