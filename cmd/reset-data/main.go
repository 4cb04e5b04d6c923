package main

import (
	"context"
	"flag"
	"log"

	"go-stock-resi/internal/app"
	"go-stock-resi/internal/config"
	"go-stock-resi/internal/model"
	"go-stock-resi/internal/service"
	"go-stock-resi/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	confirm := flag.Bool("confirm", false, "really delete every product and transaction")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("❌ logger: %v", err)
	}
	defer zl.Sync()

	if !*confirm {
		zl.Warn("refusing to clear data without -confirm", zap.String("backend", cfg.StorageBackend))
		return
	}

	// 2. Setup Storage
	ctx := context.Background()
	backend, err := app.OpenBackend(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("open backend", zap.Error(err))
	}
	defer backend.Close()

	// 3. Clear
	inventory := service.NewInventoryService(backend, nil, zl, service.WithFallbackUser(cfg.FallbackUser))
	if err := inventory.Load(ctx); err != nil {
		zl.Fatal("load inventory", zap.Error(err))
	}
	products, transactions := len(inventory.GetAllProducts()), len(inventory.GetAllTransactions())

	if err := inventory.ClearAll(ctx, model.Session{UserName: "reset-data"}); err != nil {
		zl.Fatal("clear data", zap.Error(err))
	}

	zl.Info("✅ all data cleared",
		zap.String("backend", backend.Name()),
		zap.Int("products", products),
		zap.Int("transactions", transactions),
	)
}
