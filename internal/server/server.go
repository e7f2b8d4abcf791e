// Package server exposes the food library and log as a local JSON API.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/julianstephens/nutrilog/internal/backup"
	"github.com/julianstephens/nutrilog/internal/config"
	"github.com/julianstephens/nutrilog/internal/constants"
	"github.com/julianstephens/nutrilog/internal/importer"
	"github.com/julianstephens/nutrilog/internal/logger"
	"github.com/julianstephens/nutrilog/internal/lookup"
	"github.com/julianstephens/nutrilog/internal/storage"
)

const shutdownTimeout = 5 * time.Second

// Options holds the dependencies of a Server.
type Options struct {
	Store   storage.Provider
	Config  *config.Config
	Lookup  *lookup.Client // nil disables /lookup
	Columns importer.ColumnMap
	// Backup is called before destructive bulk operations. It may be nil.
	Backup func(backup.Reason)
	// Now resolves "today". Defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	store   storage.Provider
	cfg     config.ServerConfig
	meal    string
	lookup  *lookup.Client
	columns importer.ColumnMap
	backup  func(backup.Reason)
	now     func() time.Time
}

func New(opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		store:   opts.Store,
		cfg:     cfg.Server,
		meal:    cfg.Defaults.Meal,
		lookup:  opts.Lookup,
		columns: opts.Columns,
		backup:  opts.Backup,
		now:     opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.backup == nil {
		s.backup = func(backup.Reason) {}
	}
	return s
}

// Router creates and configures the Gin router
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	// Food names may contain "/", sent as %2F
	router.UseRawPath = true

	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(RateLimitMiddleware(rate.Limit(s.cfg.RateLimit), s.cfg.Burst))

	router.GET("/health", s.health)

	v1 := router.Group("/api/v1")
	{
		library := v1.Group("/library")
		{
			library.GET("", s.listLibrary)
			library.POST("/import", s.importLibrary)
			library.GET("/:name", s.getLibraryEntry)
			library.PUT("/:name", s.putLibraryEntry)
		}

		log := v1.Group("/log")
		{
			log.GET("", s.listLog)
			log.POST("", s.appendLog)
			log.DELETE("", s.deleteLogByDate)
			log.DELETE("/latest", s.deleteLatestLog)
			log.DELETE("/:id", s.deleteLogEntry)
		}

		v1.GET("/dates", s.listDates)
		v1.GET("/days/:date", s.daySummary)
		v1.GET("/lookup/:upc", s.lookupProduct)
	}

	return router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "addr", addr, "version", constants.Version)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("Shutting down HTTP API")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
