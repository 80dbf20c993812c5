package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"healthjournal-backend/internal/documents"
	"healthjournal-backend/internal/shared/config"
	"healthjournal-backend/internal/shared/metrics"
	"healthjournal-backend/internal/shared/server/middleware"
	"healthjournal-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config          config.Config
	DocumentHandler *documents.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	deps.DocumentHandler.RegisterRoutes(api.Group("/documents"))

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
