// Package router assembles the gin engine: the middleware chain, the edge
// access gate and every API route group.
package router

import (
	"net/http"

	"github.com/atelierloop/gateway/internal/domain/session"
	"github.com/atelierloop/gateway/internal/infrastructure/auth"
	"github.com/atelierloop/gateway/internal/infrastructure/config"
	"github.com/atelierloop/gateway/internal/infrastructure/logger"
	"github.com/atelierloop/gateway/internal/interfaces/http/dto"
	"github.com/atelierloop/gateway/internal/interfaces/http/handler"
	"github.com/atelierloop/gateway/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Dependencies carries everything the router needs to wire routes
type Dependencies struct {
	Config       *config.Config
	Logger       *zap.Logger
	JWTService   *auth.JWTService
	Capabilities auth.CapabilityStore
	Auditor      middleware.AuditRecorder

	Auth    *handler.AuthHandler
	Lister  *handler.ListerHandler
	Renter  *handler.RenterHandler
	Admin   *handler.AdminHandler
	Catalog *handler.CatalogHandler
}

// New builds the gin engine with the full middleware chain and all routes
func New(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	_ = engine.SetTrustedProxies(cfg.HTTP.TrustedProxies)

	engine.Use(logger.Recovery(deps.Logger))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(deps.Logger))
	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(cfg.App.Name))
	}
	engine.Use(middleware.CORSWithConfig(corsConfig(cfg)))
	engine.Use(middleware.Secure())
	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(
			middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
	}
	engine.Use(middleware.Session(deps.JWTService, deps.Logger))
	engine.Use(middleware.AccessGate(deps.JWTService))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("NOT_FOUND", "Resource not found"))
	})

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/v1")

	registerAuthRoutes(api, cfg, deps.Auth)
	registerCatalogRoutes(api, deps.Catalog)
	registerListerRoutes(api, deps.Lister)
	registerRenterRoutes(api, deps.Renter)
	registerAdminRoutes(api, deps)

	return engine
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	return corsCfg
}

// registerAuthRoutes wires the sign-in flow. The credential endpoints get a
// stricter per-account limiter so code guessing burns out fast.
func registerAuthRoutes(api *gin.RouterGroup, cfg *config.Config, h *handler.AuthHandler) {
	group := api.Group("/auth")

	credential := group.Group("")
	if cfg.HTTP.AuthRateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		credential.Use(middleware.RateLimitByKey(limiter, authRateKey))
	}
	credential.POST("/login", h.Login)
	credential.POST("/verify-code", h.VerifyCode)
	credential.POST("/resend-code", h.ResendCode)

	group.GET("/me", h.GetCurrentUser)
	group.POST("/logout", h.Logout)
	group.POST("/set-token", h.SetToken)
	group.POST("/clear-token", h.ClearToken)
}

// authRateKey buckets auth attempts per client address
func authRateKey(c *gin.Context) string {
	return "auth:" + c.ClientIP()
}

func registerCatalogRoutes(api *gin.RouterGroup, h *handler.CatalogHandler) {
	api.GET("/products", h.Products)
	api.GET("/products/:id", h.Product)
}

func registerListerRoutes(api *gin.RouterGroup, h *handler.ListerHandler) {
	group := api.Group("/lister")
	group.Use(middleware.RequireRole(session.RoleLister, session.RoleAdmin))

	group.GET("/orders", h.Orders)
	group.POST("/orders/:id/approve", h.ApproveOrder)
	group.POST("/orders/:id/reject", h.RejectOrder)
	group.GET("/listings", h.Listings)
	group.GET("/wallet", h.Wallet)
	group.POST("/wallet/withdraw", h.Withdraw)
	group.POST("/listings/:id/images/presign", h.PresignUpload)
	group.DELETE("/listings/:id/images/*key", h.DeleteImage)
}

func registerRenterRoutes(api *gin.RouterGroup, h *handler.RenterHandler) {
	group := api.Group("/renter")
	group.Use(middleware.RequireAuth())

	group.GET("/holds", h.Holds)
	group.POST("/holds/:id/checkout", h.Checkout)
	group.DELETE("/holds/:id", h.ReleaseHold)
	group.GET("/disputes", h.Disputes)
	group.POST("/disputes", h.OpenDispute)
}

// registerAdminRoutes nests the console under the rotating capability
// segment. The AccessGate has already hidden these routes from anyone who
// is not a signed-in admin; the guard then checks the segment itself.
func registerAdminRoutes(api *gin.RouterGroup, deps Dependencies) {
	group := api.Group("/admin/:adminId")
	group.Use(middleware.RequireRole(session.RoleAdmin))
	group.Use(middleware.AdminGuard(deps.Capabilities, deps.Auditor, deps.Logger))

	group.GET("/users", deps.Admin.Users)
	group.POST("/users/:id/suspend", deps.Admin.SuspendUser)
	group.POST("/disputes/:id/resolve", deps.Admin.ResolveDispute)
	group.POST("/capability/rotate", deps.Admin.RotateCapability)
}
