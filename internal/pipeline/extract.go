package pipeline

import (
	"context"
	"time"
)

// TableExtractor is what the ingest stage exposes to the driver.
type TableExtractor interface {
	Run(ctx context.Context, tables []string) error
}

// Extract runs a full extraction of the given source tables with stage
// metrics recorded around it.
func Extract(ctx context.Context, e TableExtractor, tables []string) (err error) {
	start := time.Now()
	defer func() { trackStage("ingest", start, err) }()
	return e.Run(ctx, tables)
}
