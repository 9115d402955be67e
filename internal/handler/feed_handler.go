package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/internal/repository"
	"github.com/campusconnect/campus/internal/service"
	"github.com/campusconnect/campus/pkg/log"
	"github.com/campusconnect/campus/pkg/middleware"
	"github.com/campusconnect/campus/pkg/response"
)

// ListThreads returns every thread ordered by title.
func (h *Handler) ListThreads(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	threads, err := h.feedService.ListThreads(ctx)
	if err != nil {
		l.Error().Err(err).Msg("list threads failed")
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, threads)
}

// ListPosts returns posts newest first, filtered by ?thread_id when given.
func (h *Handler) ListPosts(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	posts, err := h.feedService.ListPosts(ctx, threadFilter(c))
	if err != nil {
		l.Error().Err(err).Msg("list posts failed")
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, posts)
}

// CreatePost inserts a post into the selected thread. Listings pick it up
// through the realtime refetch.
func (h *Handler) CreatePost(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)

	var req domain.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid create post request")
		response.BadRequest(c, err.Error())
		return
	}

	post, err := h.feedService.CreatePost(ctx, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyContent), errors.Is(err, service.ErrContentTooLong),
			errors.Is(err, service.ErrThreadRequired):
			response.BadRequest(c, sentence(err))
		case errors.Is(err, repository.ErrThreadNotFound):
			response.NotFound(c, sentence(err))
		default:
			l.Error().Err(err).Str(log.FieldUserID, userID).Msg("create post failed")
			response.InternalError(c, err.Error())
		}
		return
	}

	response.Created(c, post)
}

// ListComments returns a post's comments oldest first.
func (h *Handler) ListComments(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	postID := c.Param("id")

	comments, err := h.feedService.ListComments(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			response.NotFound(c, sentence(err))
			return
		}
		l.Error().Err(err).Str(log.FieldPostID, postID).Msg("list comments failed")
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, comments)
}

// CreateComment adds a comment to an existing post.
func (h *Handler) CreateComment(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.GetUserID(c)
	postID := c.Param("id")

	var req domain.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid create comment request")
		response.BadRequest(c, err.Error())
		return
	}

	comment, err := h.feedService.CreateComment(ctx, userID, postID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyContent), errors.Is(err, service.ErrContentTooLong):
			response.BadRequest(c, sentence(err))
		case errors.Is(err, repository.ErrPostNotFound):
			response.NotFound(c, sentence(err))
		default:
			l.Error().Err(err).Str(log.FieldPostID, postID).Msg("create comment failed")
			response.InternalError(c, err.Error())
		}
		return
	}

	response.Created(c, comment)
}

func threadFilter(c *gin.Context) *string {
	id := c.Query("thread_id")
	if id == "" {
		return nil
	}
	return &id
}
