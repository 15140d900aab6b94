package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ploxora/internal/app"
	"ploxora/internal/config"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logrus.Info("Configuration loaded")

	// 2. Build storage and services
	logger := logrus.WithField("app", cfg.AppName)
	a, err := app.New(cfg, logger)
	if err != nil {
		logrus.Fatalf("Failed to initialize panel: %v", err)
	}
	defer a.Close()
	logger.Infof("Storage ready (%s)", a.Describe())

	ctx := context.Background()
	if err := a.Settings.EnsureDefaults(ctx); err != nil {
		logrus.Fatalf("Failed to initialize settings: %v", err)
	}

	// 3. Load addons
	if err := a.Addons.Load(); err != nil {
		logger.WithError(err).Warn("Failed to load addons")
	}

	// 4. Start realtime hub and node health worker
	a.Hub.Start()
	defer a.Hub.Close()
	if a.Health != nil {
		a.Health.Start()
		defer a.Health.Stop()
	}

	// 5. Initialize Gin router
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: a.Router(),
	}

	go func() {
		logger.Infof("Server starting on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
}
