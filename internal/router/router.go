package router // package router wires HTTP routes to handlers and middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/issue-tracker/internal/config"
	"github.com/iliyamo/issue-tracker/internal/handler"
	"github.com/iliyamo/issue-tracker/internal/middleware"
	"github.com/iliyamo/issue-tracker/internal/model"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Issues    *handler.IssueHandler
	Comments  *handler.CommentHandler
	Dashboard *handler.DashboardHandler
}

// Register mounts all routes with their middleware chains.  The order on a
// protected write is: rate limiter, then JWT authentication, then the role
// gate, then the handler.  The handler never runs before all gates pass.
func Register(e *echo.Echo, cfg config.Config, rl config.RateLimitConfig, cacheCfg config.CacheConfig,
	store middleware.RateStore, rdb *redis.Client, h Handlers) {

	e.HTTPErrorHandler = ErrorHandler

	limit := func(p config.RateLimitPolicy) echo.MiddlewareFunc {
		if !rl.Enabled {
			return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
		}
		return middleware.RateLimit(p, store)
	}

	// Public, lenient tier.
	e.GET("/healthz", handler.Health, limit(rl.Lenient))

	// Auth endpoints get the strict tier: they are the brute-force surface.
	auth := e.Group("/v1/auth", limit(rl.Strict))
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	// Everything else requires a valid access token and the moderate tier.
	api := e.Group("/v1", limit(rl.Moderate), middleware.JWTAuth(cfg.JWTSecret))
	api.GET("/auth/me", h.Auth.Me)
	api.POST("/auth/logout-all", h.Auth.LogoutAll)

	api.POST("/issues", h.Issues.Create)
	api.GET("/issues", h.Issues.List)
	api.GET("/issues/:id", h.Issues.Get)
	api.PATCH("/issues/:id", h.Issues.Update)
	api.DELETE("/issues/:id", h.Issues.Delete, middleware.RequireRole(model.RoleManager, model.RoleAdmin))
	api.GET("/issues/:id/activity", h.Issues.Activity)

	api.POST("/issues/:id/comments", h.Comments.Create)
	api.GET("/issues/:id/comments", h.Comments.List)
	api.PUT("/comments/:id", h.Comments.Update)
	api.DELETE("/comments/:id", h.Comments.Delete)

	// Dashboard reads sit behind the response cache.
	dash := api.Group("/dashboard", middleware.ResponseCache(cacheCfg, rdb))
	dash.GET("/stats", h.Dashboard.GetStats)
	dash.GET("/activity", h.Dashboard.GetActivity)
}
