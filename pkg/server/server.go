package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"osdsched/pkg/log"
	"osdsched/pkg/registry"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	shutdownTimeout = 10 * time.Second
	// maxDescriptorSize bounds the body of a descriptor announcement.
	maxDescriptorSize = 1 << 20
)

// SchedulerServer exposes the OSD registry over HTTP.
type SchedulerServer struct {
	echo     *echo.Echo
	registry *registry.Registry
	version  string
}

func NewSchedulerServer(reg *registry.Registry, version string) *SchedulerServer {
	return &SchedulerServer{
		echo:     echo.New(),
		registry: reg,
		version:  version,
	}
}

// Start serves on addr until SIGINT or SIGTERM, then shuts down gracefully.
func (srv *SchedulerServer) Start(addr string) error {
	srv.setupRoutes()
	srv.registry.Start()

	go func() {
		log.Info().
			Str("addr", addr).
			Str("version", srv.version).
			Msg("Starting OSD scheduler")

		if err := srv.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server startup failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return srv.Shutdown()
}

func (srv *SchedulerServer) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.echo.Shutdown(ctx)
	srv.registry.Stop()
	if err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	log.Info().Msg("Shutdown complete")
	return nil
}

func (srv *SchedulerServer) setupRoutes() {
	srv.echo.HideBanner = true
	srv.echo.HidePort = true

	srv.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	srv.echo.Use(middleware.Recover())

	srv.echo.GET("/openapi.yml", srv.serveAPISpec)

	srv.echo.GET("/osd", srv.listNodes)
	srv.echo.GET("/osd/:id", srv.getNode)
	srv.echo.DELETE("/osd/:id", srv.deleteNode)
	srv.echo.PUT("/osd/:id/descriptor", srv.putDescriptor)
	srv.echo.GET("/osd/:id/descriptor", srv.getDescriptor)
	srv.echo.GET("/osd/:id/free", srv.getFreeResources)
	srv.echo.POST("/osd/:id/reset", srv.resetNode)
	srv.echo.PUT("/osd/:id/usage", srv.putUsage)
	srv.echo.POST("/osd/:id/reservations", srv.createReservation)
	srv.echo.DELETE("/osd/:id/reservations/:rid", srv.deleteReservation)
}

// registryError maps registry errors to HTTP responses.
func registryError(ctx echo.Context, id string, err error) error {
	switch {
	case errors.Is(err, registry.ErrNodeNotFound):
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "OSD not found",
		})
	case errors.Is(err, registry.ErrNodeDegraded):
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "OSD is degraded",
		})
	case errors.Is(err, registry.ErrDuplicateReservation):
		return ctx.JSON(http.StatusConflict, map[string]string{
			"error": "reservation already exists",
		})
	default:
		log.Error().Err(err).Str("osd", id).Msg("Registry operation failed")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
	}
}
