package main

import (
	"callsync-platform/internal/devices"
	"callsync-platform/internal/httpapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW, ingestCap gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// AUTH routes (token issuance).
	// NOTE: This is a placeholder login route; real device provisioning is not implemented.
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	v1.Use(devices.RequireDevice())
	{
		// EVENT ingestion. Live engine observations come only from the
		// primary device; sync events come only from linked devices.
		events := v1.Group("/call-events")
		events.Use(devices.RequireAnyRole(devices.RolePrimary))
		events.Use(ingestCap)
		{
			events.POST("", h.PostCallEvent)
		}

		sync := v1.Group("/sync")
		sync.Use(devices.RequireAnyRole(devices.RoleLinked))
		sync.Use(ingestCap)
		{
			sync.POST("/call-events", h.PostSyncCallEvent)
		}

		// HISTORY reads and bulk operations; any linked device may issue them.
		history := v1.Group("/call-history")
		history.Use(devices.RequireAnyRole(devices.RolePrimary, devices.RoleLinked))
		{
			history.GET("", h.ListHistory)
			history.GET("/summary", h.HistorySummary)
			history.POST("/clear", h.ClearHistory)
			history.POST("/mark-read", h.MarkAllRead)
		}

		conversations := v1.Group("/conversations")
		conversations.Use(devices.RequireAnyRole(devices.RolePrimary, devices.RoleLinked))
		{
			conversations.POST("/:conversation_id/mark-read", h.MarkConversationRead)
		}
	}
}
