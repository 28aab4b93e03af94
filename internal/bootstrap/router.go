package bootstrap

import (
	"database/sql"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/graphv-app/graphv-backend/internal/api/http"
	"github.com/graphv-app/graphv-backend/internal/api/http/middleware"
	sessionhttp "github.com/graphv-app/graphv-backend/internal/session/http"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Registry    *sessionhttp.Registry
	Redis       *redis.Client
	DB          *sql.DB
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", sessionhttp.SessionIDHeader, "X-Request-Id"},
		ExposeHeaders:    []string{sessionhttp.SessionIDHeader, "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Redis, dep.DB)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	api.Use(middleware.RequestIDMiddleware())

	sessionHandler := sessionhttp.New(dep.Registry)
	sessionHandler.Register(api.Group("/session"))

	return r
}
