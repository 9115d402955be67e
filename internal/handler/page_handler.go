package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/pkg/log"
	"github.com/campusconnect/campus/pkg/middleware"
	"github.com/campusconnect/campus/pkg/response"
)

// Screen routes return each screen's mount state as JSON.

func (h *Handler) LoginPage(c *gin.Context) {
	response.Success(c, gin.H{"screen": "login", "signed_in": middleware.GetUserID(c) != ""})
}

func (h *Handler) SignupPage(c *gin.Context) {
	response.Success(c, gin.H{"screen": "signup", "signed_in": middleware.GetUserID(c) != ""})
}

// FeedPage loads the thread list and the unfiltered post listing.
func (h *Handler) FeedPage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	threads, err := h.feedService.ListThreads(ctx)
	if err != nil {
		l.Error().Err(err).Msg("load feed threads failed")
		response.InternalError(c, err.Error())
		return
	}

	selected := threadFilter(c)
	posts, err := h.feedService.ListPosts(ctx, selected)
	if err != nil {
		l.Error().Err(err).Msg("load feed posts failed")
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, domain.FeedView{
		Threads:          threads,
		Posts:            posts,
		SelectedThreadID: selected,
	})
}

func (h *Handler) ProfilePage(c *gin.Context) {
	view, ok := h.profileView(c)
	if !ok {
		return
	}
	response.Success(c, view)
}

// ChatPage mounts a fresh chat screen.
func (h *Handler) ChatPage(c *gin.Context) {
	session := h.chats.Open(middleware.GetUserID(c))
	response.Success(c, chatView(session))
}
