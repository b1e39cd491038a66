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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mindful-go-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := &Handler{
		log:        log,
		now:        time.Now,
		sessionTTL: cfg.SessionTTL,
		responder:  newCannedResponder(),
	}
	if cfg.OpenAIAPIKey != "" {
		h.responder = newOpenAIResponder(cfg)
		log.Info("chat responder", zap.String("model", cfg.OpenAIModel))
	}

	switch cfg.StorageBackend {
	case "memory":
		auth := newMemAuthStore()
		if cfg.DemoToken != "" {
			seedDemoSession(auth, cfg.DemoToken, time.Now())
		}
		h.auth = auth
		h.stores = newMemoryStores(time.Now)
		log.Warn("using in-memory storage; data is lost on restart")
	default:
		pool, err := newDBPool(ctx, cfg.DBURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Info("DB pool ready")
		h.auth = newPGAuthStore(pool, log)
		h.stores = newPostgresStores(pool, log)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("backend", cfg.StorageBackend))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
