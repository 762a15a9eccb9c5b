package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/agenthands/lexgraph/internal/core"
	"github.com/agenthands/lexgraph/internal/core/model"
)

const defaultSearchSize = 10

type Server struct {
	LexGraph *core.LexGraph
	Gatherer prometheus.Gatherer
	log      zerolog.Logger
}

func NewServer(g *core.LexGraph, gatherer prometheus.Gatherer, log zerolog.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{LexGraph: g, Gatherer: gatherer, log: log}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.POST("/ask", s.Ask)
	r.POST("/search", s.Search)
	r.GET("/health", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

type AskRequest struct {
	Question string `json:"question"`
}

func (s *Server) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	a, err := s.LexGraph.AnswerQuestion(c.Request.Context(), req.Question)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to answer question")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to answer question"})
		return
	}
	c.JSON(http.StatusOK, a)
}

type SearchRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode"`
	Size  *int   `json:"size"`
}

func (s *Server) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	mode, err := model.ParseSearchMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	size := defaultSearchSize
	if req.Size != nil {
		size = *req.Size
	}

	set := s.LexGraph.Search(c.Request.Context(), req.Query, mode, size)
	switch {
	case errors.Is(set.Err, model.ErrIndexCorrupted):
		s.log.Error().Err(set.Err).Msg("search index corrupted")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search index is corrupted"})
	case set.Err != nil:
		s.log.Warn().Err(set.Err).Msg("search unavailable")
		c.JSON(http.StatusServiceUnavailable, set)
	default:
		c.JSON(http.StatusOK, set)
	}
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "lexgraph"})
}
