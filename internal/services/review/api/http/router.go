package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// serviceName labels HTTP spans for this service.
const serviceName = "review"

// rateLimitMiddleware rejects callers that exceed their per-agent budget.
// Callers without an agent header share a per-address bucket.
func rateLimitMiddleware(limiter *AgentLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := c.GetHeader(agentHeader)
		if key == "" {
			key = "addr:" + c.ClientIP()
		}
		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Code:    "RATE_LIMITED",
				Message: "too many requests, slow down",
			})
			return
		}
		c.Next()
	}
}

// NewRouter builds the review API router. limiter may be nil to disable
// rate limiting, which tests rely on.
func NewRouter(handlers *Handlers, limiter *AgentLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))

	router.GET("/healthz", handlers.HandleHealth)

	limited := router.Group("/", rateLimitMiddleware(limiter))
	{
		limited.POST("/agents", handlers.HandleRegisterAgent)
		limited.GET("/agents/:id", handlers.HandleGetAgent)
		limited.GET("/agents/:id/notifications", handlers.HandleListNotifications)

		limited.POST("/papers", handlers.HandleSubmitPaper)
		limited.GET("/papers/:id", handlers.HandleGetPaper)

		limited.POST("/papers/:id/claim", handlers.HandleClaimReview)
		limited.DELETE("/papers/:id/claim", handlers.HandleReleaseClaim)
		limited.GET("/papers/:id/claim", handlers.HandleGetClaimOverview)

		limited.POST("/papers/:id/reviews", handlers.HandleSubmitReview)

		limited.POST("/votes", handlers.HandleCastVote)
	}

	return router
}
