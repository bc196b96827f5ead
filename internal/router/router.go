package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/kavyan/clipvault/internal/config"
	"github.com/kavyan/clipvault/internal/handler"    // import the handlers that implement business logic
	"github.com/kavyan/clipvault/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// The /healthz endpoint can be used by load balancers or monitoring
	// systems to verify that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterEvents registers the inbound event webhook the chat bridge
// posts to.  A per-user token bucket throttles double-tapped buttons
// and command floods before they reach the engine.
func RegisterEvents(e *echo.Echo, w *handler.WebhookHandler, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.POST("/v1/events", w.Events, middleware.NewTokenBucket(rlCfg, rdb))
}

// RegisterAdmin registers the operator API: login under /v1/auth, the
// protected management surface under /v1/admin, and the cached public
// stats endpoint.
func RegisterAdmin(e *echo.Echo, a *handler.AuthHandler, adm *handler.AdminHandler,
	jwtSecret string, cacheCfg config.CacheConfig, rdb *redis.Client) {
	// Login is the only unauthenticated auth operation: the single
	// operator account exchanges credentials for a short-lived token.
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)

	// Everything under /v1/admin requires a valid access token carrying
	// the ADMIN role.
	auth := e.Group("/v1/admin")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ADMIN"))

	auth.GET("/me", a.Me)

	auth.POST("/users/:id/premium", adm.GrantPremium)
	auth.DELETE("/users/:id/premium", adm.RevokePremium)
	auth.POST("/users/:id/token", adm.GrantToken)
	auth.POST("/users/:id/verify", adm.Verify)
	auth.POST("/users/:id/block", adm.BlockUser)
	auth.DELETE("/users/:id/block", adm.UnblockUser)
	auth.GET("/users/blocked", adm.BlockedUsers)
	auth.DELETE("/users/:id", adm.DeleteUser)

	auth.POST("/items", adm.AddItem)
	auth.PUT("/items/:hash/handle", adm.UpdateHandle)

	// Aggregate counters are public and cheap to share; the Redis
	// response cache keeps dashboard polling off the database.
	e.GET("/v1/stats", adm.Stats, middleware.NewRedisCache(cacheCfg, rdb))
}
