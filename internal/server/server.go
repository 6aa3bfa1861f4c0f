// Package server exposes the upload pipeline over HTTP. Authentication is
// assumed to be handled by a gateway in front of this service.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"

	"github.com/shanidan92/muza-metadata-server/internal/artifacts"
	"github.com/shanidan92/muza-metadata-server/internal/catalog"
	"github.com/shanidan92/muza-metadata-server/internal/config"
	"github.com/shanidan92/muza-metadata-server/internal/metadata"
	"github.com/shanidan92/muza-metadata-server/internal/pipeline"
)

// Server is the HTTP front for the ingest pipeline.
type Server struct {
	cfg      config.ServerConfig
	pipeline *pipeline.Pipeline
	store    *artifacts.Store
	engine   *gin.Engine
	log      hclog.Logger
}

// New builds the server and registers its routes.
func New(cfg config.ServerConfig, p *pipeline.Pipeline, store *artifacts.Store, log hclog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		store:    store,
		engine:   gin.New(),
		log:      log.Named("server"),
	}
	s.engine.Use(gin.Recovery())

	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/upload", s.limitBody, s.handleUpload)
	s.engine.Static("/files", store.UploadDir())

	return s
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.log.Info("starting upload server", "addr", addr)
	return s.engine.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "muza-uploader"})
}

// limitBody caps the request body so oversized uploads are rejected rather
// than spooled to disk.
func (s *Server) limitBody(c *gin.Context) {
	if s.cfg.MaxBodySize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodySize)
	}
	c.Next()
}

func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer f.Close()

	result, err := s.pipeline.Ingest(c.Request.Context(), f, fileHeader.Filename, s.baseURL(c))
	if err != nil {
		status := http.StatusInternalServerError
		if isValidationError(err) {
			status = http.StatusBadRequest
		}
		s.log.Error("ingest failed", "file", fileHeader.Filename, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "file processed successfully",
		"track":    result.Track,
		"metadata": result.Attributes,
	})
}

// baseURL prefers the configured external base URL and falls back to the
// request host.
func (s *Server) baseURL(c *gin.Context) string {
	if s.cfg.BaseURL != "" {
		return s.cfg.BaseURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// isValidationError reports whether the ingest failed on user input rather
// than on an external system.
func isValidationError(err error) bool {
	return errors.Is(err, artifacts.ErrUnsupportedFile) ||
		errors.Is(err, metadata.ErrNoMetadata) ||
		errors.Is(err, catalog.ErrNoTitle)
}
