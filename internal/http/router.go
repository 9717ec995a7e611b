package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ledgerhub/ledgerhub/internal/auth"
	"github.com/ledgerhub/ledgerhub/internal/config"
	"github.com/ledgerhub/ledgerhub/internal/http/handlers"
	"github.com/ledgerhub/ledgerhub/internal/http/middlewares"
	"github.com/ledgerhub/ledgerhub/internal/ledger"
	"github.com/ledgerhub/ledgerhub/internal/observability"
	"github.com/ledgerhub/ledgerhub/internal/repo/postgres"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// per-instance registry so parallel test routers do not fight over
	// duplicate collector registration
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("ledgerhub"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	// metrics wrap the reject-capable middlewares below, 4xx aborts included
	r.Use(prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool)
	expensesRepo := postgres.NewExpensesRepo(pool, prom)
	refreshRepo := postgres.NewRefreshTokensRepo(pool)

	jwt := auth.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authMW := middlewares.NewAuthMiddleware(jwt)

	svc := ledger.NewService(expensesRepo, usersRepo)

	// wire up handlers
	health := handlers.NewHealthHandler(pool)
	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwt, refreshRepo, cfg)
	expensesHandler := handlers.NewExpensesHandler(svc)
	adminHandler := handlers.NewAdminHandler(svc, prom)

	// ops endpoints
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// docs
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// auth routes; login and signup sit behind a per-IP limiter
	authLimiter := middlewares.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.SignUp)
		authGroup.POST("/login", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", authMW.RequireAuth(), authHandler.Me)
	}

	// authenticated ledger routes
	api := r.Group("/", authMW.RequireAuth())
	{
		api.POST("/expenses", expensesHandler.Create)
		api.GET("/expenses", expensesHandler.List)
		api.GET("/expenses/:id", expensesHandler.GetByID)
		api.PUT("/expenses/:id", expensesHandler.Update)
		api.DELETE("/expenses/:id", expensesHandler.Delete)
		api.GET("/dashboard", expensesHandler.Dashboard)
	}

	// admin routes
	admin := r.Group("/admin", authMW.RequireAuth(), authMW.RequireAdmin())
	{
		admin.GET("/expenses", adminHandler.ListExpenses)
		admin.GET("/users", adminHandler.ListUsers)
		admin.GET("/summary", adminHandler.Summary)
		admin.GET("/export/:kind", adminHandler.Export)
	}

	log.Info("router initialized", "env", cfg.Env)

	return r
}
