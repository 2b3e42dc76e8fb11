package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "controlling_roaster/docs"
	"controlling_roaster/internal/handlers"
	"controlling_roaster/internal/logger"
	"controlling_roaster/internal/metrics"
	"controlling_roaster/internal/port"
	"controlling_roaster/internal/repository"
	"controlling_roaster/internal/repository/db"
	"controlling_roaster/internal/server"
	"controlling_roaster/internal/service"
	"controlling_roaster/internal/simulator"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

// @title        Roaster control API
// @version      1.0
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := loadConfig(viper.GetViper(), "configs")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.LogLevel)

	sqlDB, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalw("failed to init sqlite", "path", cfg.DBPath, "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	if cfg.SigningKey == "" {
		// tokens will not survive a restart
		cfg.SigningKey = uuid.NewString()
		log.Warnw("auth.signing_key not set; using an ephemeral key")
	}

	// "sim" selects the emulated roaster, anything else the serial driver
	device := simulator.New()
	m := metrics.New()

	repos := repository.NewRepository(sqlDB)
	services := service.NewService(repos, service.Options{
		Opener:     device.Route(port.TarmOpener),
		Logger:     log,
		Metrics:    m,
		SigningKey: cfg.SigningKey,
		TokenTTL:   cfg.TokenTTL,
	})
	apiHandler := handlers.NewHandler(services, log, cfg.Start, m.Handler())

	if cfg.Autostart {
		if err := services.Roaster.Start(context.Background(), cfg.Start); err != nil {
			log.Errorw("roaster_autostart_failed", "err", err)
		}
	}

	srv := server.New()
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	waitForShutdown(services, srv, log)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
	log.Infow("http_server_starting", "port", port)
}

// waitForShutdown blocks until SIGINT/SIGTERM, releases the serial line,
// flushes the audit log and drains the HTTP server.
func waitForShutdown(services *service.Service, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := services.Roaster.Stop(ctx); err != nil {
		log.Errorw("roaster_stop_failed", "err", err)
	}
	services.Close()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
