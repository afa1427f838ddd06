// Command ingest snapshots every source table of the sales database into
// the raw object store bucket as JSON.
package main

import (
	"context"
	"log"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/jackc/pgx/v5/pgxpool"

	"warehouse-etl/internal/cli"
	"warehouse-etl/internal/config"
	"warehouse-etl/internal/ingest"
	"warehouse-etl/internal/pipeline"
	"warehouse-etl/internal/schema"
	"warehouse-etl/internal/snapshot"
)

func main() {
	flags := cli.Parse()

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		cli.Fatalf("load config: %v", err)
	}
	if done := cli.ReportIssues(config.ValidateIngest(cfg), flags); done {
		return
	}

	closeMetrics := cli.SetupMetrics(flags, cfg.Job)
	defer closeMetrics()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Source.DSN)
	if err != nil {
		cli.Fatalf("connect to source database: %v", err)
	}
	defer pool.Close()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.ObjectStore.Region))
	if err != nil {
		cli.Fatalf("load aws config: %v", err)
	}
	store := snapshot.NewS3Store(awsCfg, cfg.ObjectStore.IngestBucket)

	var logger ingest.Logger
	if flags.Verbose {
		logger = log.Default()
	}

	start := time.Now()
	extractor := ingest.NewExtractor(pool, store, logger)
	if err := pipeline.Extract(ctx, extractor, schema.SourceTables); err != nil {
		log.Fatalf("ingest failed: %v", err)
	}
	if flags.Verbose {
		log.Printf("ingest completed in %v", time.Since(start).Round(time.Millisecond))
	}
}
