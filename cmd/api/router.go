package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vocalizeapp/vocalize/internal/auth"
	"github.com/vocalizeapp/vocalize/internal/config"
	"github.com/vocalizeapp/vocalize/internal/database"
	"github.com/vocalizeapp/vocalize/internal/logging"
	"github.com/vocalizeapp/vocalize/internal/middleware"
	"github.com/vocalizeapp/vocalize/internal/service"
)

// API bundles the handlers' dependencies
type API struct {
	accounts *service.Accounts
	jobs     *service.Jobs
	repo     *database.Repository
	sessions *auth.Sessions
	logger   *logging.Logger
}

func setupRouter(api *API, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Auth.AllowedOrigins))
	router.Use(middleware.RequestLogger(api.logger))
	router.Use(middleware.Metrics())

	router.GET("/health", api.healthCheck)

	limiter := middleware.NewRateLimiter(cfg.Auth.RateLimitRPS, cfg.Auth.RateLimitBurst)
	go limiter.Cleanup(context.Background())

	v1 := router.Group("/api/v1")

	// Credential endpoints are open but rate limited by client IP
	creds := v1.Group("/auth")
	creds.Use(middleware.RateLimit(limiter))
	{
		creds.POST("/signup", api.signup)
		creds.POST("/login", api.login)
		creds.POST("/logout", api.logout)
	}

	protected := v1.Group("")
	protected.Use(middleware.Auth(api.sessions, api.repo))
	protected.Use(middleware.RateLimit(limiter))
	{
		protected.GET("/auth/me", api.me)
		protected.POST("/auth/apikey", api.rotateAPIKey)

		protected.GET("/credits", api.getCredits)
		protected.GET("/usage", api.getUsage)

		protected.POST("/tts", api.synthesize)
		protected.POST("/tts/jobs", api.submitSpeech)
		protected.PUT("/videos/upload", api.uploadVideo)

		protected.GET("/jobs", api.listJobs)
		protected.GET("/jobs/:id", api.getJob)
		protected.GET("/jobs/:id/result", api.getJobResult)
	}

	// Inference service callback, gated by the shared token inside the handler
	router.POST("/internal/callbacks/jobs", api.jobCallback)

	return router
}

func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.repo.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
