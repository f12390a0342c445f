// Package api serves the review service over a JSON REST interface.
package api

import (
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_review/internal/engine/reviews"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Service      *reviews.Service
	AllowOrigins []string // default http://localhost:3000
	Version      string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:3000"}
	}
	h := &Handler{svc: cfg.Service, version: cfg.Version}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", h.Root)
	router.GET("/healthz", h.Health)

	api := router.Group("/api")
	{
		api.POST("/transcript", h.Transcript)
		api.POST("/analyze", h.Analyze)
		api.POST("/process", h.Process)
		api.POST("/analyze-perfumes", h.AnalyzePerfumes)
		api.POST("/parameters", h.Parameters)
		api.POST("/ask_question", h.AskQuestion)
		api.POST("/define", h.Define)
		api.POST("/feedback", h.Feedback)
		api.GET("/perfumes/:video_id", h.ListPerfumes)
		api.DELETE("/perfumes/:id", h.DeletePerfume)
		api.POST("/podcast", h.Podcast)
	}
	return router
}

// requestLogger logs one line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("api request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)))
	}
}
