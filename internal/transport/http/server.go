package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/meetsig/meetsig-server/internal/auth"
	"github.com/meetsig/meetsig-server/internal/config"
	"github.com/meetsig/meetsig-server/internal/core"
	"github.com/meetsig/meetsig-server/internal/meeting"
)

// NewServer builds the HTTP server: REST API under /api, the signaling
// WebSocket at /ws, and a health probe.
func NewServer(hub *core.Hub, authService *auth.Service, meetings *meeting.Service, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(LoggerMiddleware(logger), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, cfg.MaxMessageBytes, logger)))

	apiHandlers := NewAPIHandlers(authService, logger)
	meetingHandlers := NewMeetingHandlers(meetings, hub, logger)

	api := router.Group("/api")
	{
		api.POST("/register", apiHandlers.Register)
		api.POST("/login", apiHandlers.Login)
		api.POST("/guest", apiHandlers.GuestLogin)

		authed := api.Group("", AuthMiddleware(authService, logger))
		{
			authed.POST("/meetings", meetingHandlers.CreateMeeting)
			authed.GET("/meetings/:id", meetingHandlers.GetMeeting)
			authed.POST("/meetings/:id/end", meetingHandlers.EndMeeting)
		}
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
