package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"plant_identifier/internal/metrics"
	"plant_identifier/internal/service"
)

const (
	// Room for multipart boundaries and headers on top of the image itself.
	multipartOverhead = 1 << 20

	imageCacheControl = "public, max-age=31536000, immutable"
)

type Server struct {
	addr      string
	maxUpload int64
	router    *gin.Engine
	svc       *service.Service
	logger    *slog.Logger
	http      *http.Server
}

func NewServer(addr string, maxUpload int64, svc *service.Service, logger *slog.Logger) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	r.MaxMultipartMemory = maxUpload + multipartOverhead

	s := &Server{
		addr:      addr,
		maxUpload: maxUpload,
		router:    r,
		svc:       svc,
		logger:    logger.With("component", "server"),
	}

	api := r.Group("/api")
	api.POST("/identify", s.handleIdentify)
	api.GET("/detections", s.handleListDetections)
	api.GET("/detections/:id", s.handleGetDetection)
	api.GET("/images/:id", s.handleGetImage)
	api.GET("/images/:id/thumbnail", s.handleGetThumbnail)

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleIdentify(c *gin.Context) {
	const op = "server.handleIdentify"

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload+multipartOverhead)

	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("image exceeds the maximum size of %d bytes", s.maxUpload)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image provided"})
		return
	}
	if file.Size > s.maxUpload {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("image exceeds the maximum size of %d bytes", s.maxUpload)})
		return
	}

	src, err := file.Open()
	if err != nil {
		s.logger.Error("failed to open upload", "op", op, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		s.logger.Error("failed to read upload", "op", op, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
		return
	}

	res, err := s.svc.Identify(c.Request.Context(), service.Upload{
		Data:     data,
		MimeType: uploadMimeType(file.Header.Get("Content-Type"), data),
		Filename: file.Filename,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// uploadMimeType trusts the declared part type unless it is missing or generic.
func uploadMimeType(declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}

func (s *Server) handleListDetections(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	list, err := s.svc.List(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetDetection(c *gin.Context) {
	d, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleGetImage(c *gin.Context) {
	data, mime, err := s.svc.Image(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Cache-Control", imageCacheControl)
	c.Data(http.StatusOK, mime, data)
}

func (s *Server) handleGetThumbnail(c *gin.Context) {
	data, mime, err := s.svc.Thumbnail(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Cache-Control", imageCacheControl)
	c.Data(http.StatusOK, mime, data)
}

func (s *Server) writeError(c *gin.Context, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		s.logger.Error("unexpected error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status := statusFor(svcErr.Kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": svcErr.Message()})
}

func statusFor(kind error) int {
	switch kind {
	case service.ErrValidation:
		return http.StatusBadRequest
	case service.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
