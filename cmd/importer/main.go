package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"contractledger/internal/config"
	"contractledger/internal/db"
	"contractledger/internal/importer"
	"contractledger/internal/logging"
	prestationrepo "contractledger/internal/repository/prestation"
	"go.uber.org/zap"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to a prestations CSV (salesSystemId,name,unitPrice)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

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

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, prestationrepo.NewPostgres(pool, logger), logger)

	start := time.Now()
	res, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Error(err), zap.Int("imported", res.Imported))
	}
	if res.Problems != nil {
		logger.Warn("rows skipped", zap.Error(res.Problems))
	}

	fmt.Printf("Imported %d prestations (%d skipped) in %s\n", res.Imported, res.Skipped, time.Since(start).Truncate(time.Millisecond))
}
