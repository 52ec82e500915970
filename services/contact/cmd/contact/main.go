package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"contactdesk/internal/util"
	"contactdesk/pkg/queue"
	"contactdesk/services/contact/internal/app"
	"contactdesk/services/contact/internal/config"
	"contactdesk/services/contact/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "WARN: failed to load .env: %v\n", err)
	}
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, cleanup := util.InitLogger(util.LogConfig{Level: cfg.LogLevel, Service: "contact", Dir: cfg.LogsDir})
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var dispatcher app.Dispatcher = app.LogDispatcher{}
	if cfg.DispatchMode == config.DispatchQueue {
		outbox, err := queue.NewRedisOutbox(queue.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.QueueName,
		})
		if err != nil {
			util.Fatal("failed to init dispatch outbox", "err", err)
		}
		defer outbox.Close()
		dispatcher = app.QueueDispatcher{Queue: outbox}
	}

	appCore, err := app.New(ctx, app.Config{
		GenerationProvider: cfg.GenerationProvider,
		GenerationAPIKey:   cfg.GeminiAPIKey,
		GenerationBaseURL:  cfg.GenerationBaseURL,
		GenerationModel:    cfg.GenerationModel,
		Dispatcher:         dispatcher,
		AdminEmail:         cfg.AdminEmail,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer, err := server.New(server.Config{
		App:                appCore,
		RedisAddr:          cfg.RedisAddr,
		RedisPassword:      cfg.RedisPassword,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		AllowedOrigins:     cfg.AllowedOrigins,
	})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}
	defer httpServer.Close()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("contact server listening", "addr", addr, "dispatch", cfg.DispatchMode)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
