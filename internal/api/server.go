// Package api exposes upload, ask and history over HTTP.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/ingest"
	"pdf-chatbot/internal/metrics"
	"pdf-chatbot/internal/models"
	"pdf-chatbot/internal/rag"
)

type Asker interface {
	Ask(ctx context.Context, question string, lastN int) (*rag.AskResult, error)
	History(lastN int) []models.Turn
}

type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*ingest.Result, error)
}

func NewRouter(cfg *config.Config, asker Asker, uploader Uploader, m *metrics.Metrics) *gin.Engine {
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(requestLogger(), gin.Recovery(), cors(cfg.Server.AllowedOrigins))

	h := &Handler{
		asker:          asker,
		uploader:       uploader,
		maxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		defaultLastN:   cfg.RAG.DefaultLastN,
	}
	router.GET("/healthz", h.Health)
	router.POST("/upload", h.Upload)
	router.POST("/ask", h.Ask)
	router.GET("/history", h.History)

	if cfg.Metrics.Enabled && m != nil {
		router.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}
	return router
}

// NewServer wraps the router in an http.Server with the usual timeouts.
// Write timeout is left open because an answer can take minutes on a slow
// model.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
