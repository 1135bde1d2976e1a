package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/mesahub/mesa-backend/internal/config"
	"github.com/mesahub/mesa-backend/internal/httpapi"
	"github.com/mesahub/mesa-backend/internal/store"
	"github.com/mesahub/mesa-backend/internal/table"
)

func main() {
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open postgres", zap.Error(err))
		}
		if err := pg.Migrate(); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		st = pg
		logger.Info("using postgres store")
	} else {
		st = store.NewMemory()
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	ctx := context.Background()
	tb := table.New(ctx, st, logger, cfg.ChatHistory)

	handler := httpapi.SetupRoutes(&httpapi.API{
		Store: st,
		Table: tb,
		Cfg:   cfg,
		Log:   logger,
	})

	logger.Info("listening", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
