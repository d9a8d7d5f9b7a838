package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"contractledger/internal/config"
	"contractledger/internal/db"
	"contractledger/internal/logging"
	"contractledger/internal/report"
	activityrepo "contractledger/internal/repository/activity"
	customerrepo "contractledger/internal/repository/customer"
	prestationrepo "contractledger/internal/repository/prestation"
	cataloguesvc "contractledger/internal/service/catalogue"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	var outDir string
	flag.StringVar(&outDir, "out", cfg.ReportOutputDir, "Directory the report CSV is written to")
	flag.Parse()

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

	catalogue := cataloguesvc.New(prestationrepo.NewPostgres(pool, logger), logger)
	generator := report.NewGenerator(customerrepo.NewPostgres(pool, logger), activityrepo.NewPostgres(pool, logger), catalogue, logger)
	scheduler := report.NewScheduler(generator, report.NewCSVWriter(outDir, logger), cfg.ReportInterval, nil, logger)

	rows, path, err := scheduler.RunOnce(ctx)
	if err != nil {
		logger.Fatal("reconciliation failed", zap.Error(err))
	}
	if path == "" {
		fmt.Println("No open contracts; no report written")
		return
	}
	fmt.Printf("Wrote %d rows to %s\n", len(rows), path)
}
