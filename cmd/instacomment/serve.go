package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/urfave/cli"

	"github.com/jmylchreest/instacomment/internal/api/handlers"
	"github.com/jmylchreest/instacomment/internal/http/mw"
	"github.com/jmylchreest/instacomment/internal/job"
	"github.com/jmylchreest/instacomment/internal/version"
)

func serve(_ *cli.Context) error {
	cfg, logger, err := loadConfig(true)
	if err != nil {
		return err
	}

	logger.Info("starting instacomment",
		"version", version.Get().Version,
		"port", cfg.Port,
		"job_enabled", cfg.CommentJobEnabled,
	)

	// Cancelled on shutdown; outlives requests so triggered runs keep going.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	var schedule handlers.Schedule
	var scheduler *job.Scheduler
	if cfg.CommentJobEnabled {
		scheduler, err = job.NewScheduler(cfg.CommentSchedule, d.job.Tick, logger)
		if err != nil {
			return err
		}
		scheduler.Start(ctx)
		schedule = scheduler
	} else {
		logger.Info("comment job disabled, runs only start via the API")
	}

	healthHandler := handlers.NewHealthHandler(d.session, d.job)
	igHandler := handlers.NewInstagramHandler(d.client, logger)
	jobsHandler := handlers.NewJobsHandler(ctx, d.job, schedule, logger)
	sessionHandler := handlers.NewSessionHandler(d.session, logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(mw.RequestContext)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	if cfg.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
	}

	if cfg.AllowUnauthenticated {
		logger.Warn("authentication disabled - ALLOW_UNAUTHENTICATED is set")
	}

	humaConfig := huma.DefaultConfig("Instacomment", version.Get().Version)
	humaConfig.Info.Description = "Scheduled Instagram commenting agent"
	api := humachi.New(r, humaConfig)
	handlers.RegisterPublic(api, healthHandler)

	protectedRouter := chi.NewRouter()
	protectedRouter.Use(mw.Auth(mw.AuthConfig{
		Secret:               cfg.APISecret,
		AllowUnauthenticated: cfg.AllowUnauthenticated,
		Logger:               logger,
	}))
	protectedAPI := humachi.New(protectedRouter, humaConfig)
	handlers.RegisterProtected(protectedAPI, igHandler, jobsHandler, sessionHandler)

	r.Mount("/", protectedRouter)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Error("server error", "error", err)
		cancel()
		return err
	}

	logger.Info("shutting down server...")

	// Stops the schedule and cancels any in-flight run at its next wait.
	cancel()
	if scheduler != nil {
		scheduler.Stop()
	}
	waitForRun(d, 30*time.Second)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// waitForRun gives a triggered run time to record its outcome before the store closes.
func waitForRun(d *deps, limit time.Duration) {
	deadline := time.Now().Add(limit)
	for d.job.State().Running && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
}
