package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/vanityforge/vanity-gateway/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// Payment notification intake (authenticated by HMAC signature, not by
	// the Authorization header)
	router.POST("/webhook/helius", handler.NotifyPayments)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Ownership-proof claim (public; the proof itself is the credential)
		v1.POST("/orders/claim", handler.ClaimOrder)

		// Order status lookup (public read access)
		v1.GET("/orders/:signature", handler.GetOrder)

		// Payment listing (requires authentication)
		v1.GET("/payments", middleware.Auth(authCfg), handler.ListPayments)
	}
}
