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
	"golang.org/x/sync/errgroup"

	"contactdesk/internal/servicetoken"
	"contactdesk/internal/util"
	"contactdesk/pkg/queue"
	"contactdesk/pkg/storage"
	"contactdesk/services/dispatch/internal/app"
	"contactdesk/services/dispatch/internal/config"
	"contactdesk/services/dispatch/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "WARN: failed to load .env: %v\n", err)
	}
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, cleanup := util.InitLogger(util.LogConfig{Level: cfg.LogLevel, Service: "dispatch", Dir: cfg.LogsDir})
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := app.Config{
		DatabaseURL: cfg.DatabaseURL,
		MailFrom:    cfg.MailFrom,
	}
	if cfg.MinioEnabled() {
		objects, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			util.Fatal("failed to init object store", "err", err)
		}
		appCfg.Objects = objects
	}
	appCore, err := app.New(appCfg)
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	outbox, err := queue.NewRedisOutbox(queue.Config{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		Stream:     cfg.QueueName,
		Group:      cfg.QueueGroup,
		MaxRetries: cfg.QueueMaxRetries,
		RetryDelay: time.Duration(cfg.QueueRetryDelaySeconds) * time.Second,
	})
	if err != nil {
		util.Fatal("failed to init dispatch outbox", "err", err)
	}
	defer outbox.Close()

	verifyKeys, err := servicetoken.ParseKeyList(cfg.InternalJWTVerifyPublicKeys)
	if err != nil {
		util.Fatal("invalid internalJwtVerifyPublicKeys", "err", err)
	}
	httpServer, err := server.New(server.Config{
		Jobs:                        outbox,
		Store:                       appCore.Store(),
		InternalJWTPublicKeyPath:    cfg.InternalJWTPublicKeyPath,
		InternalJWTKeyID:            cfg.InternalJWTKeyID,
		InternalJWTVerifyPublicKeys: verifyKeys,
		InternalJWTAllowedIssuers:   cfg.InternalJWTAllowedIssuers,
	})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// outbox.Close runs after g.Wait, so no handler outlives the Redis pool.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("dispatch worker started", "stream", cfg.QueueName, "concurrency", cfg.QueueConcurrency)
		return outbox.Run(gctx, cfg.QueueConcurrency, appCore.Handle)
	})

	g.Go(func() error {
		slog.Info("dispatch server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("dispatch worker error", "err", err)
	}
}
