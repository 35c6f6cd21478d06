package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/cubechat/internal/config"
	"github.com/zhouzirui/cubechat/internal/handler"
	"github.com/zhouzirui/cubechat/internal/pkg/logger"
	"github.com/zhouzirui/cubechat/internal/service/ai"
	"github.com/zhouzirui/cubechat/internal/service/library"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zl, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Production: cfg.Log.Production,
		File:       cfg.Log.File,
		Console:    true,
	})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()
	zap.ReplaceGlobals(zl)

	if envErr != nil {
		zl.Info("no .env file loaded, using process environment", zap.Error(envErr))
	}

	lib, err := library.Open(cfg.Library.Folder, zl)
	if err != nil {
		zl.Fatal("failed to open document library", zap.Error(err))
	}

	var gen ai.Generator = ai.Fallback{}
	if cfg.AI.Enabled() {
		chatModel, err := cfg.AI.NewChatModel(ctx)
		if err != nil {
			zl.Warn("chat model unavailable, answering without AI", zap.Error(err))
		} else if svc, err := ai.NewService(ctx, chatModel, zl); err != nil {
			zl.Warn("answer chain unavailable, answering without AI", zap.Error(err))
		} else {
			gen = svc
			zl.Info("AI service initialized", zap.String("model", cfg.AI.Model))
		}
	} else {
		zl.Info("ark credentials not configured, answering without AI")
	}

	responder := ai.NewResponder(gen, lib, cfg.Library.SourcesPerAnswer, zl)
	router := handler.NewRouter(lib, responder, cfg.Library.MaxUploadBytes, zl)

	startServer(ctx, cfg.Server, router, zl)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, zl *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	zl.Info("CubeChat backend listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
