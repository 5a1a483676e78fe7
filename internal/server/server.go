package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the dashboard API router.
func NewRouter(h *Handler, allowedOrigin string, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(Logger(logger))
	router.Use(CORS(allowedOrigin))

	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	stocks := router.Group("/stocks")
	{
		stocks.GET("", h.GetStocks)
		stocks.POST("/refresh", h.Refresh)
		stocks.POST("/generate-recent", h.GenerateRecent)
	}

	return router
}
