// Command transform conforms the latest raw snapshots into the star schema
// and writes one parquet dataset per warehouse table.
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
)

func main() {
	flags := cli.Parse()

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		cli.Fatalf("load config: %v", err)
	}
	if done := cli.ReportIssues(config.ValidateTransform(cfg), flags); done {
		return
	}

	closeMetrics := cli.SetupMetrics(flags, cfg.Job)
	defer closeMetrics()

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.ObjectStore.Region))
	if err != nil {
		cli.Fatalf("load aws config: %v", err)
	}

	var logger pipeline.Logger
	if flags.Verbose {
		logger = log.Default()
	}

	t := &pipeline.Transformer{
		Raw:       snapshot.NewS3Store(awsCfg, cfg.ObjectStore.IngestBucket),
		Processed: snapshot.NewS3Store(awsCfg, cfg.ObjectStore.ProcessedBucket),
		Logger:    logger,
	}

	start := time.Now()
	if err := t.Run(ctx); err != nil {
		log.Fatalf("transform failed: %v", err)
	}
	if flags.Verbose {
		log.Printf("transform completed in %v", time.Since(start).Round(time.Millisecond))
	}
}
