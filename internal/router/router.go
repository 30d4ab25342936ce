package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/handler"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	Public  *handler.PublicHandler
	Admin   *handler.AdminHandler
	Monitor *handler.MonitorHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds the rate limiter's cleanup goroutine.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
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
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first: the request logger and handlers log through the
	// request-scoped logger it attaches.
	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)

	// ─── 1. Public Group (No Auth, Rate Limited) ───────────────────────
	// Assessment info never carries the access code, so clients may keep it
	// as long as the server-side content cache would.
	infoCache := middleware.NoStore()
	if maxAge := int(cfg.ContentCacheTTL / time.Second); maxAge > 0 {
		infoCache = middleware.CacheControl(maxAge)
	}

	publicAPI := router.Group("/api/v1/public")
	publicAPI.Use(limiter.Middleware())
	{
		publicAPI.GET("/assessments/:share_code", infoCache, handlers.Public.GetAssessment)
		publicAPI.POST("/assessments/:share_code/sessions", middleware.NoStore(), handlers.Public.StartSession)
	}

	// ─── 2. Candidate Group (Candidate or Public JWT) ──────────────────
	candidateAPI := router.Group("/api/v1/candidate")
	candidateAPI.Use(
		limiter.Middleware(),
		middleware.RequireCandidateJWT(authService),
		middleware.NoStore(),
	)
	{
		candidateAPI.POST("/assessments/:assessment_id/sessions", handlers.Session.StartSession)

		sessions := candidateAPI.Group("/sessions/:session_id")
		sessions.GET("/state", handlers.Session.GetState)
		sessions.PUT("/answers", handlers.Session.SubmitAnswer)
		sessions.POST("/violations", handlers.Session.FlagViolation)
		sessions.POST("/views", handlers.Session.RecordView)
		sessions.POST("/submit", handlers.Session.Submit)
		sessions.GET("/paper", handlers.Session.GetPaper)
		sessions.GET("/result", handlers.Session.GetResult)
	}

	// ─── 3. WebSocket Group (Candidate WS Auth) ────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireCandidateWSAuth(authService))
	{
		ws.GET("/candidate/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Admin Group (Admin JWT + RBAC) ─────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService), middleware.NoStore())
	{
		adminAPI.POST("/sessions/:session_id/abandon",
			middleware.RequirePermission(model.PermissionSessionsAbandon), handlers.Admin.AbandonSession)
		adminAPI.GET("/sessions/:session_id/heatmap",
			middleware.RequirePermission(model.PermissionResultsRead), handlers.Admin.GetHeatmap)

		adminAPI.POST("/assessments/:assessment_id/reap",
			middleware.RequirePermission(model.PermissionSessionsReap), handlers.Admin.ReapSessions)
		adminAPI.GET("/assessments/:assessment_id/results",
			middleware.RequirePermission(model.PermissionResultsRead), handlers.Admin.ListResults)
		adminAPI.GET("/assessments/:assessment_id/analytics",
			middleware.RequirePermission(model.PermissionResultsRead), handlers.Admin.GetAnalytics)
		adminAPI.GET("/assessments/:assessment_id/monitor",
			middleware.RequirePermission(model.PermissionMonitorRead), handlers.Monitor.MonitorAssessmentSSE)
		adminAPI.POST("/assessments/:assessment_id/refresh-cache",
			middleware.RequirePermission(model.PermissionContentRefresh), handlers.Admin.RefreshCache)
	}

	return router
}
