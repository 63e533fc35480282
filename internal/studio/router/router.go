// Package router wires the agent studio HTTP routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/agent-studio/internal/studio/handler"
)

// Register registers all HTTP routes on the engine.
func Register(engine *gin.Engine, agentHandler *handler.AgentHandler) {
	engine.GET("/healthz", agentHandler.Healthz)

	v1 := engine.Group("/v1")
	{
		agents := v1.Group("/agents")
		{
			agents.POST("", agentHandler.Create)
			agents.GET("", agentHandler.List)
			agents.GET("/:id", agentHandler.Get)
			agents.PUT("/:id", agentHandler.Update)
			agents.DELETE("/:id", agentHandler.Delete)

			agents.POST("/:id/query", agentHandler.Query)
			agents.POST("/:id/documents", agentHandler.Upload)
			agents.GET("/:id/context", agentHandler.Context)
		}

		v1.GET("/formats", agentHandler.Formats)
		v1.GET("/stats", agentHandler.Stats)
	}

	logger.Info("HTTP routes registered")
}
