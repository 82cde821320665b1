// Package main provides the timetable bot server entry point.
package main

import (
	"context"
	"time"

	"github.com/uitmtimetable/icress-linebot-go/internal/logger"
	"github.com/uitmtimetable/icress-linebot-go/internal/storage"
)

const (
	cachePurgeInitialDelay = 5 * time.Minute
	cachePurgeInterval     = 12 * time.Hour
	staleSessionAge        = 24 * time.Hour
)

// startCachePurgeJob periodically removes expired cache rows and abandoned
// dialog sessions. Expired rows are already invisible to readers; the purge
// only keeps the database from growing. The returned channel closes when
// the job has stopped.
func startCachePurgeJob(ctx context.Context, db *storage.DB, log *logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	jobLog := log.WithModule("jobs")

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				jobLog.WithField("panic", r).Error("Panic in cache purge job")
			}
		}()

		select {
		case <-ctx.Done():
			return
		case <-time.After(cachePurgeInitialDelay):
			purgeOnce(ctx, db, jobLog)
		}

		ticker := time.NewTicker(cachePurgeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purgeOnce(ctx, db, jobLog)
			}
		}
	}()

	return done
}

func purgeOnce(ctx context.Context, db *storage.DB, log *logger.Logger) {
	start := time.Now()

	deleted, err := db.PurgeExpiredCacheEntries(ctx)
	if err != nil {
		log.WithError(err).Error("Cache purge failed")
		return
	}

	sessions, err := db.PurgeStaleSessions(ctx, staleSessionAge)
	if err != nil {
		log.WithError(err).Error("Session purge failed")
		return
	}

	log.WithField("cache_entries_deleted", deleted).
		WithField("sessions_deleted", sessions).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Cache purge completed")
}
