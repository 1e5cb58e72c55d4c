package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/svyatogor45/linekeeper/internal/api"
	"github.com/svyatogor45/linekeeper/internal/config"
	"github.com/svyatogor45/linekeeper/internal/exchangeclient"
	"github.com/svyatogor45/linekeeper/internal/oddsclient"
	"github.com/svyatogor45/linekeeper/internal/position"
	"github.com/svyatogor45/linekeeper/internal/repository"
	"github.com/svyatogor45/linekeeper/internal/scheduler"
	"github.com/svyatogor45/linekeeper/internal/service"
	"github.com/svyatogor45/linekeeper/internal/wsadmin"
	"github.com/svyatogor45/linekeeper/pkg/utils"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer log.Sync()

	db, err := initDatabase(cfg)
	if err != nil {
		log.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()
	log.Info("connected to database")

	// Admin-facing journals: excluded events, notification log, runtime settings.
	blacklistService := service.NewBlacklistService(repository.NewBlacklistRepository(db))
	notificationService := service.NewNotificationService(
		repository.NewNotificationRepository(db),
		repository.NewSettingsRepository(db),
	)
	settingsService := service.NewSettingsService(repository.NewSettingsRepository(db))

	hub := wsadmin.NewHub()
	go hub.Run()
	notificationService.SetBroadcaster(hub)

	oddsClient := oddsclient.New(oddsclient.Config{
		BaseURL:            cfg.Feed.BaseURL,
		APIKey:             cfg.Feed.APIKey,
		Sport:              cfg.Feed.Sport,
		Bookmaker:          cfg.Feed.Bookmaker,
		Markets:            cfg.Feed.Markets,
		RequestTimeout:     30 * time.Second,
		MinRequestInterval: time.Second,
	})

	exchangeClient := exchangeclient.New(exchangeclient.Config{
		BaseURL:        cfg.Exchange.BaseURL,
		AccessKey:      cfg.Exchange.AccessKey,
		SecretKey:      cfg.Exchange.SecretKey,
		Sandbox:        cfg.Exchange.Sandbox,
		RequestTimeout: 15 * time.Second,
		DryRun:         cfg.DryRun,
	})

	positionStore := position.New()

	schedCfg := scheduler.DefaultConfig()
	schedCfg.Period = cfg.Engine.PollInterval
	schedCfg.StopMargin = cfg.Engine.StopMarginBeforeStart
	schedCfg.CancelOnStopMargin = cfg.Engine.CancelOnStopMargin
	schedCfg.MaxConcurrentOutbound = cfg.Engine.MaxConcurrentOutbound
	schedCfg.TournamentSport = cfg.Feed.Sport
	schedCfg.Pricing.BasePlusStake = cfg.Engine.BasePlusStake
	schedCfg.Pricing.HardMaxPlus = cfg.Engine.HardMaxPlus
	schedCfg.Pricing.PositionMultiplier = cfg.Engine.PositionMultiplier
	schedCfg.Pricing.CommissionRate = cfg.Engine.CommissionRate

	sched := scheduler.New(schedCfg, oddsClient, exchangeClient, positionStore, hub)
	sched.SetBlacklist(blacklistService)
	sched.SetNotifier(notificationService)

	ctx, cancel := context.WithCancel(context.Background())
	schedDone := make(chan error, 1)
	go func() {
		schedDone <- sched.Run(ctx)
	}()

	go runNotificationRetention(ctx, notificationService, cfg.Logging.NotificationRetention)

	deps := &api.Dependencies{
		Scheduler:           sched,
		NotificationService: notificationService,
		SettingsService:     settingsService,
		BlacklistService:    blacklistService,
		Hub:                 hub,
		AdminUsername:       cfg.Security.AdminUsername,
		AdminPasswordHash:   cfg.Security.AdminPasswordHash,
	}

	router := api.SetupRoutes(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Sugar().Infow("starting server", "addr", server.Addr)
		var serveErr error
		if cfg.Server.UseHTTPS {
			serveErr = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			serveErr = server.ListenAndServe()
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			log.Sugar().Fatalw("server failed", "error", serveErr)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	// Stop the cycle loop (and, after it, the Exchange Client's independent
	// auth-refresh task) before tearing down the HTTP server, so no
	// in-flight placement races a closed admin console.
	cancel()
	select {
	case err := <-schedDone:
		if err != nil && err != context.Canceled {
			log.Sugar().Warnw("scheduler exited with error", "error", err)
		}
	case <-time.After(30 * time.Second):
		log.Warn("scheduler did not stop within grace period")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Sugar().Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

// retentionCheckInterval is how often the notification log is checked for
// rows older than the configured retention window.
const retentionCheckInterval = time.Hour

// runNotificationRetention periodically prunes the notification journal so
// it doesn't grow unbounded across months of continuous operation.
func runNotificationRetention(ctx context.Context, notifications *service.NotificationService, retention time.Duration) {
	ticker := time.NewTicker(retentionCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := notifications.Prune(retention)
			if err != nil {
				utils.L().Sugar().Warnw("notification retention prune failed", "error", err)
				continue
			}
			if deleted > 0 {
				utils.L().Sugar().Infow("pruned notification log",
					"deleted", deleted,
					"retention", utils.FormatDuration(retention),
				)
			}
		}
	}
}

// initDatabase opens the connection backing the admin journals (excluded
// events, notification log, runtime settings); the scheduler itself holds
// no database state.
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := sql.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
