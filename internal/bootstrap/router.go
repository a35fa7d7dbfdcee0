package bootstrap

import (
	"database/sql"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/advisor"
	httpapi "github.com/PathFinder-25-26J-118/path-finder-backend/internal/api/http"
	apimw "github.com/PathFinder-25-26J-118/path-finder-backend/internal/api/http/middleware"
	idhttp "github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/http"
	idmw "github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/middleware"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/provider"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/reconcile"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/repository"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	DB          *sql.DB
	Redis       *redis.Client
	Verifier    provider.TokenVerifier
	Engine      *reconcile.Engine
	ProfileRepo *repository.ProfileRepository
	Advisor     *advisor.Client
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(apimw.RequestID())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis, dep.Advisor)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	api.Use(idmw.FirebaseAuth(dep.Verifier, dep.Engine))
	api.Use(apimw.RateLimit(10, 20))

	idHandler := idhttp.NewHandler(dep.Engine, dep.ProfileRepo)
	idHandler.Register(api)

	advisorHandler := advisor.NewHandler(dep.Advisor)
	advisorHandler.Register(api)

	return r
}
