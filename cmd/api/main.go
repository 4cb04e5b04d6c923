package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-stock-resi/internal/app"
	"go-stock-resi/internal/config"
	"go-stock-resi/internal/handler"
	"go-stock-resi/internal/service"
	"go-stock-resi/internal/ws"
	"go-stock-resi/pkg/jwt"
	"go-stock-resi/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
	zl.Info("server exited")
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Setup Storage (chosen once)
	backend, err := app.OpenBackend(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer backend.Close()
	zl.Info("storage backend ready", zap.String("backend", backend.Name()))

	// 3. Setup WebSocket Hub
	wsHub := ws.NewHub(zl)

	// 4. Dependency Injection (Wiring Layers)
	invService := service.NewInventoryService(backend, wsHub, zl, service.WithFallbackUser(cfg.FallbackUser))
	dashService := service.NewDashboardService(invService)
	reportService := service.NewReportService(invService)
	sessionService := service.NewSessionService(jwt.NewManager(cfg.JWTSecret, cfg.SessionTTL))

	g, ctx := errgroup.WithContext(ctx)

	if err := invService.Start(ctx); err != nil {
		return err
	}

	// 5. Setup Fiber
	server := handler.NewRouter(handler.RouterConfig{
		Inventory:    invService,
		Dashboard:    dashService,
		Reports:      reportService,
		Sessions:     sessionService,
		FallbackUser: cfg.FallbackUser,
		Hub:          wsHub,
		Ctx:          ctx,
		RequestLog:   true,
	})

	g.Go(func() error {
		return wsHub.Run(ctx)
	})

	g.Go(func() error {
		zl.Info("listening", zap.String("port", cfg.Port))
		return server.Listen(":" + cfg.Port)
	})

	// 6. Graceful Shutdown
	g.Go(func() error {
		<-ctx.Done()
		zl.Info("shutting down server")
		return server.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
