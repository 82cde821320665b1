// Package main provides the timetable bot server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/uitmtimetable/icress-linebot-go/internal/bot"
	"github.com/uitmtimetable/icress-linebot-go/internal/buildinfo"
	"github.com/uitmtimetable/icress-linebot-go/internal/cache"
	"github.com/uitmtimetable/icress-linebot-go/internal/config"
	"github.com/uitmtimetable/icress-linebot-go/internal/icress"
	"github.com/uitmtimetable/icress-linebot-go/internal/logger"
	"github.com/uitmtimetable/icress-linebot-go/internal/metrics"
	"github.com/uitmtimetable/icress-linebot-go/internal/sentry"
	"github.com/uitmtimetable/icress-linebot-go/internal/storage"
	"github.com/uitmtimetable/icress-linebot-go/internal/timetable"
	"github.com/uitmtimetable/icress-linebot-go/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterstackToken: cfg.BetterstackToken,
	})
	log.WithField("version", buildinfo.Release()).Info("Starting UiTM Timetable LINE bot server")

	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Release(),
	}); err != nil {
		log.WithError(err).Warn("Failed to initialize error reporting")
	}
	defer sentry.Flush(2 * time.Second)

	db, err := storage.New(cfg.SQLitePath())
	if err != nil {
		log.WithError(err).Error("Failed to open database")
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewBuildInfoCollector())
	m := metrics.New(registry)

	portalClient := icress.NewClient(cfg.IcressURL, cfg.IcressRefererURL, cfg.PortalTimeout, log)
	portalClient.SetRecorder(m)

	store := cache.New(db, log)
	store.SetRecorder(m)

	timetables := timetable.NewService(
		portalClient,
		store,
		cfg.DirectoryCacheTTL,
		cfg.TimetableCacheTTL,
		cfg.Location(),
		log,
	)

	engine := bot.NewEngine(db, timetables, log)
	engine.SetRecorder(m)

	webhookHandler, err := webhook.NewHandler(cfg.LineChannelSecret, cfg.LineChannelToken, engine, log)
	if err != nil {
		log.WithError(err).Error("Failed to create webhook handler")
		os.Exit(1)
	}
	webhookHandler.SetRecorder(m)

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(securityHeadersMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))
	if sentry.IsEnabled() {
		router.Use(sentryMiddleware())
	}

	setupRoutes(router, webhookHandler, db, registry)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.WebhookTimeout,
		IdleTimeout:  120 * time.Second,
	}

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	jobsDone := startCachePurgeJob(jobCtx, db, log)

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server failed")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	// In-flight webhook events keep processing after the listener stops.
	if err := webhookHandler.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Timed out waiting for webhook processing")
	}

	cancelJobs()
	select {
	case <-jobsDone:
	case <-shutdownCtx.Done():
		log.Warn("Timed out waiting for background jobs")
	}

	log.Info("Server stopped")
}
