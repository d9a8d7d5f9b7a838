package main

import (
	"context"
	"log"

	"contractledger/internal/config"
	"contractledger/internal/db"
	"contractledger/internal/logging"
	customerrepo "contractledger/internal/repository/customer"
	prestationrepo "contractledger/internal/repository/prestation"
	"contractledger/internal/seed"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := seed.Apply(ctx, prestationrepo.NewPostgres(pool, logger), customerrepo.NewPostgres(pool, logger)); err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}

	logger.Info("seed applied")
}
