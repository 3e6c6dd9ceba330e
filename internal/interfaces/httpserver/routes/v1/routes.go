package v1

import (
	"github.com/gin-gonic/gin"

	"zapcrm/messaging-gateway/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under the /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")

	sessions := group.Group("/sessions/:account")
	sessions.GET("/status", r.handlers.Session.Status)
	sessions.POST("/start", r.handlers.Session.Start)
	sessions.POST("/stop", r.handlers.Session.Stop)

	messages := sessions.Group("/messages")
	messages.POST("/text", r.handlers.Message.SendText)
	messages.POST("/reply", r.handlers.Message.SendReply)
	messages.POST("/media", r.handlers.Message.SendMedia)
}
