// Command goalsync runs the offline-first goal sync daemon: it opens the
// durable local store, drains the operation queue against the goal API on a
// periodic schedule and on reconnect, and serves Prometheus metrics.
//
// With DEV_SERVER=true it also hosts the in-memory goal API, which makes a
// complete local loop: the client syncs against its own dev server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-goal-sync/internal/api"
	"github.com/tbourn/go-goal-sync/internal/config"
	"github.com/tbourn/go-goal-sync/internal/devserver"
	"github.com/tbourn/go-goal-sync/internal/fetchcache"
	"github.com/tbourn/go-goal-sync/internal/goals"
	"github.com/tbourn/go-goal-sync/internal/netstate"
	"github.com/tbourn/go-goal-sync/internal/queue"
	"github.com/tbourn/go-goal-sync/internal/store"
	"github.com/tbourn/go-goal-sync/internal/sysutil"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	log := sysutil.NewLogger(os.Stderr, cfg.LogPretty)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("goalsync exited")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)

	if cfg.DevServer {
		ds := devserver.New(log)
		go func() {
			log.Info().Str("port", cfg.DevServerPort).Msg("dev goal API listening")
			if err := ds.Router().Run(":" + cfg.DevServerPort); err != nil {
				log.Error().Err(err).Msg("dev server stopped")
			}
		}()
	}

	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := store.AutoMigrate(db); err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	client := api.NewClient(cfg.ServerBaseURL, cfg.AuthToken)
	client.HTTP.Timeout = cfg.HTTPTimeout

	tracker := netstate.New(true)
	mgr := queue.NewManager(db, client, log, queue.Options{
		MaxRetries: cfg.MaxRetries,
		KickRPS:    cfg.KickRPS,
		KickBurst:  cfg.KickBurst,
		Online:     tracker.Online,
	})
	tracker.OnReconnect(mgr.Kick)

	svc := goals.NewService(db, mgr, client, log, cfg.UserID)
	cache := fetchcache.New(db, client, log)
	defer cache.Wait()

	if cfg.MetricsPort != "" {
		r := gin.New()
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
		r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
		go func() {
			log.Info().Str("port", cfg.MetricsPort).Msg("metrics listening")
			if err := r.Run(":" + cfg.MetricsPort); err != nil {
				log.Error().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	// Initial reconciliation pass: merge server state and kick the queue.
	if merged, err := svc.List(ctx); err != nil {
		log.Warn().Err(err).Msg("initial reconcile failed")
	} else {
		log.Info().Int("goals", len(merged)).Msg("reconciled goal list")
	}

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", cfg.SyncInterval).Msg("sync loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return nil
		case <-ticker.C:
			if err := mgr.Sync(ctx); err != nil {
				tracker.SetOnline(false)
				log.Warn().Err(err).Msg("sync pass failed, assuming offline")
				continue
			}
			tracker.SetOnline(true)

			if cfg.WarmStatsURL != "" {
				key := &fetchcache.Key{Subject: cfg.UserID, Platform: "stats"}
				if _, err := cache.Fetch(ctx, cfg.WarmStatsURL, key, cfg.CacheMaxAge); err != nil {
					log.Debug().Err(err).Msg("stats warm fetch failed")
				}
			}
		}
	}
}
