// Package main provides the timetable bot server entry point.
package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uitmtimetable/icress-linebot-go/internal/storage"
	"github.com/uitmtimetable/icress-linebot-go/internal/webhook"
)

// setupRoutes configures all HTTP routes.
func setupRoutes(router *gin.Engine, webhookHandler *webhook.Handler, db *storage.DB, registry *prometheus.Registry) {
	rootHandler := func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "https://github.com/uitmtimetable/icress-linebot-go")
	}
	router.GET("/", rootHandler)
	router.HEAD("/", rootHandler)

	// Liveness probe. Only checks that the process answers; never touches
	// dependencies.
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/healthz", healthHandler)
	router.HEAD("/healthz", healthHandler)

	// Readiness probe. Checks the database and reports cache state.
	readyHandler := func(c *gin.Context) {
		if err := db.Ready(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}

		cacheEntries, _ := db.CountCacheEntries(c.Request.Context())
		activeDialogs, _ := db.CountSessions(c.Request.Context())

		c.JSON(http.StatusOK, gin.H{
			"status":   "ready",
			"database": "connected",
			"cache": gin.H{
				"entries": cacheEntries,
			},
			"dialogs": gin.H{
				"active": activeDialogs,
			},
		})
	}
	router.GET("/ready", readyHandler)
	router.HEAD("/ready", readyHandler)

	// LINE webhook callback endpoint.
	router.POST("/callback", webhookHandler.Handle)

	// Prometheus metrics endpoint.
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}
