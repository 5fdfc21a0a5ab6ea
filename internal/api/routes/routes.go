package routes

import (
	"time"

	"chatroom-service/docs"
	"chatroom-service/internal/api/handlers"
	"chatroom-service/internal/api/middleware"
	"chatroom-service/pkg/logger"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	AuthHandler    *handlers.AuthHandler
	WSHandler      *handlers.WSHandler
	HealthHandler  *handlers.HealthHandler
	Tokens         middleware.TokenVerifier
	RateLimiter    middleware.RateLimiter // nil disables rate limiting
	AllowedOrigins []string
	Logger         *logger.Logger
}

type Router struct {
	engine        *gin.Engine
	authHandler   *handlers.AuthHandler
	wsHandler     *handlers.WSHandler
	healthHandler *handlers.HealthHandler
	rateLimitMW   *middleware.RateLimitMiddleware
	authMW        *middleware.AuthMiddleware
}

func NewRouter(deps Dependencies) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(deps.AllowedOrigins))
	engine.Use(middleware.LogApi(deps.Logger))

	return &Router{
		engine:        engine,
		authHandler:   deps.AuthHandler,
		wsHandler:     deps.WSHandler,
		healthHandler: deps.HealthHandler,
		rateLimitMW:   middleware.NewRateLimitMiddleware(deps.RateLimiter),
		authMW:        middleware.NewAuthMiddleware(deps.Tokens),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", r.healthHandler.Health)

	docs.SwaggerInfo.BasePath = "/api/v1"
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// The handshake authenticates itself from ?token= or the bearer header.
	api.GET("/ws",
		r.rateLimitMW.RateLimitIP(30, time.Minute), // 30 handshakes per minute per IP
		r.wsHandler.HandleWebSocket,
	)

	authRoutes := api.Group("/auth")
	{
		public := authRoutes.Group("")
		public.Use(r.rateLimitMW.RateLimitIP(50, time.Minute)) // 50 requests per minute per IP
		{
			public.POST("/register", r.authHandler.Register)
			public.POST("/login", r.authHandler.Login)
		}

		private := authRoutes.Group("")
		private.Use(r.authMW.RequireAuth())
		private.Use(r.rateLimitMW.RateLimit(100, time.Minute)) // 100 requests per minute
		{
			private.PUT("/profile", r.authHandler.UpdateProfile)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
