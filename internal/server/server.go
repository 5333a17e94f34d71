// Package server provides the HTTP API for docqa.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/docqa/internal/answer"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/indexer"
	"github.com/hyperjump/docqa/internal/ingest"
	"github.com/hyperjump/docqa/internal/llm"
	"github.com/hyperjump/docqa/internal/storage"
	"github.com/hyperjump/docqa/pkg/utils"
	"go.uber.org/zap"
)

// Services are the components the handlers call into. Captioner may be nil.
type Services struct {
	Storage   storage.Storage
	Uploader  *ingest.Uploader
	Processor *indexer.Processor
	Indexer   *indexer.Indexer
	Pipeline  *answer.Pipeline
	Captioner llm.Captioner
}

// Server is the HTTP server for the docqa API.
type Server struct {
	svc    Services
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(cfg *config.Config, svc Services, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, config: cfg, logger: logger}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.config.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Route("/data", func(r chi.Router) {
			r.Post("/upload/{project}", s.handleUpload)
			r.Post("/process/{project}", s.handleProcess)
			r.Get("/assets/{project}", s.handleListAssets)
			r.Delete("/assets/{project}/{asset}", s.handleDeleteAsset)
		})
		r.Route("/nlp/index", func(r chi.Router) {
			r.Post("/push/{project}", s.handlePush)
			r.Get("/info/{project}", s.handleInfo)
			r.Post("/search/{project}", s.handleSearch)
			r.Post("/answer/{project}", s.handleAnswer)
		})
		r.Post("/vision/explain-image", s.handleExplainImage)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:     addr,
		Handler:  s.Handler(),
		ErrorLog: utils.StdLogger(s.logger, "http"),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
