package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/gateprep-backend/internal/config"
	"github.com/stemsi/gateprep-backend/internal/handler"
	"github.com/stemsi/gateprep-backend/internal/middleware"
	"github.com/stemsi/gateprep-backend/internal/response"
	"github.com/stemsi/gateprep-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Health      *handler.HealthHandler
	MockTest    *handler.MockTestHandler
	Attempt     *handler.AttemptHandler
	Leaderboard *handler.LeaderboardHandler
	Analytics   *handler.AnalyticsHandler
	WS          *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// submitLimiter guards the start and submit endpoints.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	submitLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log and every envelope carry it.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	router.GET("/health", middleware.NoStore(), handlers.Health.Health)

	// ─── 1. Catalogue & Leaderboard (any authenticated role) ───────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireJWT(authService))
	{
		api.GET("/subjects", middleware.CacheControl(300), handlers.MockTest.ListSubjects)
		api.GET("/tests", middleware.CacheControl(60), handlers.MockTest.ListTests)
		api.GET("/tests/:test_id", middleware.NoStore(), handlers.MockTest.GetTest)
		api.GET("/leaderboard", middleware.CacheControl(30), handlers.Leaderboard.GetLeaderboard)
		api.GET("/attempts/:attempt_id/results", middleware.NoStore(), handlers.Attempt.Results)

		me := api.Group("/me", middleware.NoStore())
		me.GET("/performance", handlers.Analytics.Performance)
		me.GET("/activity", handlers.Analytics.Activity)
		me.GET("/recommendations", handlers.Analytics.Recommendations)
	}

	// ─── 2. Authoring (professor or staff) ─────────────────────────────
	authorAPI := api.Group("")
	authorAPI.Use(middleware.RequireAuthor())
	{
		authorAPI.POST("/tests", handlers.MockTest.CreateTest)
		authorAPI.POST("/tests/:test_id/questions", handlers.MockTest.AddQuestion)
	}

	// ─── 3. Attempts (students only) ───────────────────────────────────
	studentAPI := api.Group("")
	studentAPI.Use(middleware.RequireStudent(), middleware.NoStore())
	{
		studentAPI.POST("/tests/:test_id/start", submitLimiter.Middleware(), handlers.Attempt.StartTest)
		studentAPI.GET("/attempts/:attempt_id", handlers.Attempt.TakeTest)
		studentAPI.PUT("/attempts/:attempt_id/draft", handlers.Attempt.SaveDraft)
		studentAPI.POST("/attempts/:attempt_id/submit", submitLimiter.Middleware(), handlers.Attempt.Submit)
	}

	// ─── 4. WebSocket Group (token in query) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService), middleware.RequireStudent())
	{
		ws.GET("/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	return router
}
