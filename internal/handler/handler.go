package handler

import (
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/campus/internal/chat"
	"github.com/campusconnect/campus/internal/hub"
	"github.com/campusconnect/campus/internal/service"
	"github.com/campusconnect/campus/pkg/middleware"
	"github.com/campusconnect/campus/pkg/response"
	"github.com/campusconnect/campus/pkg/storage"
)

// Options carries the handler settings that come from configuration.
type Options struct {
	SecureCookies  bool
	AvatarMaxBytes int64
	WebSocket      hub.Config
}

// Handler serves the HTTP API, the websocket feed and the screen routes.
type Handler struct {
	authService    service.AuthService
	profileService service.ProfileService
	feedService    service.FeedService
	assistant      chat.Replier
	chats          *chat.Store
	hub            *hub.Hub
	media          storage.Storage
	authMiddleware *middleware.AuthMiddleware
	opts           Options
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	authService service.AuthService,
	profileService service.ProfileService,
	feedService service.FeedService,
	assistant chat.Replier,
	chats *chat.Store,
	feedHub *hub.Hub,
	media storage.Storage,
	authMiddleware *middleware.AuthMiddleware,
	opts Options,
) *Handler {
	if opts.AvatarMaxBytes <= 0 {
		opts.AvatarMaxBytes = 5 << 20
	}
	if opts.WebSocket.PingInterval <= 0 {
		opts.WebSocket = hub.DefaultConfig()
	}
	return &Handler{
		authService:    authService,
		profileService: profileService,
		feedService:    feedService,
		assistant:      assistant,
		chats:          chats,
		hub:            feedHub,
		media:          media,
		authMiddleware: authMiddleware,
		opts:           opts,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/media/*key", h.Media)

	// Screens
	r.GET("/login", h.authMiddleware.OptionalAuth(), h.LoginPage)
	r.GET("/signup", h.authMiddleware.OptionalAuth(), h.SignupPage)
	pages := r.Group("")
	pages.Use(h.authMiddleware.RequirePage())
	{
		pages.GET("/", h.FeedPage)
		pages.GET("/profile", h.ProfilePage)
		pages.GET("/chatbot", h.ChatPage)
	}

	api := r.Group("/api/v1")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/signup", h.Signup)
			auth.POST("/login", h.Login)
			auth.POST("/refresh", h.RefreshToken)
			auth.POST("/logout", h.authMiddleware.RequireAuth(), h.Logout)
			auth.GET("/session", h.authMiddleware.RequireAuth(), h.Session)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(h.authMiddleware.RequireAuth())
		{
			protected.GET("/profile", h.GetProfile)
			protected.PUT("/profile", h.UpdateProfile)
			protected.POST("/profile/avatar", h.UploadAvatar)

			protected.GET("/threads", h.ListThreads)
			protected.GET("/posts", h.ListPosts)
			protected.POST("/posts", h.CreatePost)
			protected.GET("/posts/:id/comments", h.ListComments)
			protected.POST("/posts/:id/comments", h.CreateComment)
			protected.GET("/feed/ws", h.FeedWebSocket)

			protected.POST("/assistant/reply", h.AssistantReply)
			protected.POST("/assistant/sessions", h.OpenChat)
			protected.GET("/assistant/sessions/:id", h.GetChat)
			protected.POST("/assistant/sessions/:id/messages", h.SubmitChat)
			protected.DELETE("/assistant/sessions/:id", h.CloseChat)
		}
	}

	r.NoRoute(h.NoRoute)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NoRoute sends unknown screens to the feed and unknown API paths a 404.
func (h *Handler) NoRoute(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		response.NotFound(c, "route not found")
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// sentence upper-cases the first letter of an error text for display.
func sentence(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
