package router

import (
	"github.com/makingtools/rapidbites-sub001/internal/config"
	"github.com/makingtools/rapidbites-sub001/internal/handler"
	"github.com/makingtools/rapidbites-sub001/internal/middleware"
	"github.com/makingtools/rapidbites-sub001/internal/model"
	"github.com/makingtools/rapidbites-sub001/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the already-wired services; main builds them so the store driver
// and lock backend stay a startup decision. DB and Redis may be nil.
type Deps struct {
	Auth     service.AuthService
	Sessions service.SessionService
	Closings service.ClosingService
	DB       *gorm.DB
	Redis    *redis.Client
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))

	authH := handler.NewAuthHandler(deps.Auth)
	cashH := handler.NewCashHandler(deps.Sessions, deps.Closings)

	// Public
	r.GET("/health", handler.Health(deps.DB, deps.Redis))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
	}

	anyOperator := middleware.RequireRole(model.RoleCashier, model.RoleSupervisor, model.RoleAdmin)
	supervisors := middleware.RequireRole(model.RoleSupervisor, model.RoleAdmin)

	cash := r.Group("/v1/cash", middleware.JWTAuth(cfg.JWTSecret))
	{
		cash.POST("/sessions", anyOperator, cashH.OpenSession)
		cash.GET("/sessions", supervisors, cashH.ListSessions)
		cash.GET("/sessions/active", anyOperator, cashH.GetActive)
		cash.GET("/sessions/:id", anyOperator, cashH.GetSession)
		cash.GET("/sessions/:id/expected", anyOperator, cashH.Expected)
		cash.POST("/sessions/:id/close", anyOperator, cashH.CloseSession)
		cash.GET("/closings", supervisors, cashH.ListClosings)
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
