package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"zeptrion-bridge/internal/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Server serves the Hue emulation, the REST API and the admin page on one port.
type Server struct {
	coordinator ports.CoordinatorPort
	config      ports.ConfigPort
	validator   *CommandValidator
	ip          string
	port        int
	logger      zerolog.Logger
	engine      *gin.Engine
}

func NewServer(coordinator ports.CoordinatorPort, config ports.ConfigPort, ip string, port int, logger zerolog.Logger) (*Server, error) {
	validator, err := NewCommandValidator()
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	SetupMiddleware(engine, logger)

	s := &Server{
		coordinator: coordinator,
		config:      config,
		validator:   validator,
		ip:          ip,
		port:        port,
		logger:      logger,
		engine:      engine,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := s.engine

	// Hue emulation
	r.GET("/description.xml", s.handleDescription)
	r.POST("/api", s.handleRegister)
	hue := r.Group("/api/:user")
	{
		hue.GET("", s.handleFullState)
		hue.GET("/config", s.handleHueConfig)
		hue.GET("/lights", s.handleGetLights)
		hue.GET("/lights/:id", s.handleGetLight)
		hue.PUT("/lights/:id/state", s.handleSetLightState)
	}

	v1 := r.Group("/bridge/v1")
	{
		v1.GET("/health", s.handleHealth)
		v1.GET("/hub", s.handleHub)
		v1.GET("/hub/rssi", s.handleRSSI)
		v1.GET("/channels", s.handleChannels)
		v1.GET("/channels/:id", s.handleChannel)
		v1.GET("/channels/:id/status", s.handleStatus)
		v1.GET("/channels/:id/scan", s.handleScan)
		v1.POST("/channels/:id/commands", s.handleCommand)
	}

	r.GET("/admin", s.handleAdmin)
	r.GET("/admin/config", s.handleGetConfig)
	r.POST("/admin/config", s.handleUpdateConfig)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
