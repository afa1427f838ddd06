// Command load writes the latest conformed datasets into the warehouse:
// dimensions first with insert-or-ignore, then the append-only fact table.
package main

import (
	"context"
	"log"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"warehouse-etl/internal/cli"
	"warehouse-etl/internal/config"
	"warehouse-etl/internal/pipeline"
	"warehouse-etl/internal/snapshot"
	"warehouse-etl/internal/warehouse"
	_ "warehouse-etl/internal/warehouse/all"
)

func main() {
	flags := cli.Parse()

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		cli.Fatalf("load config: %v", err)
	}
	if done := cli.ReportIssues(config.ValidateLoad(cfg), flags); done {
		return
	}

	closeMetrics := cli.SetupMetrics(flags, cfg.Job)
	defer closeMetrics()

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.ObjectStore.Region))
	if err != nil {
		cli.Fatalf("load aws config: %v", err)
	}

	repo, err := warehouse.New(ctx, warehouse.Config{
		Kind:             cfg.Warehouse.Kind,
		DSN:              cfg.Warehouse.DSN,
		AutoCreateTables: cfg.Warehouse.AutoCreateTables,
	})
	if err != nil {
		cli.Fatalf("connect to warehouse: %v", err)
	}
	defer repo.Close()

	var logger pipeline.Logger
	if flags.Verbose {
		logger = log.Default()
	}

	l := &pipeline.Loader{
		Store:  snapshot.NewS3Store(awsCfg, cfg.ObjectStore.ProcessedBucket),
		Repo:   repo,
		Logger: logger,
	}

	start := time.Now()
	if err := l.Run(ctx); err != nil {
		log.Fatalf("load failed: %v", err)
	}
	if flags.Verbose {
		log.Printf("load completed in %v", time.Since(start).Round(time.Millisecond))
	}
}
