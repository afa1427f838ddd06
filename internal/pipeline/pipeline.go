// Package pipeline holds the three stage drivers: extract source tables into
// raw snapshots, transform raw snapshots into conformed datasets, and load
// datasets into the warehouse. Each driver processes its tables sequentially
// and stops at the first failure; retry policy belongs to the orchestrator
// that schedules the stages.
package pipeline

import (
	"time"

	"warehouse-etl/internal/metrics"
)

// Logger is the minimal logging interface used by the stage drivers.
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

func orNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}

// trackStage records one stage execution's outcome and duration.
func trackStage(stage string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	labels := metrics.Labels{"stage": stage, "status": status}
	metrics.IncCounter("etl_stage_total", 1, labels)
	metrics.ObserveHistogram("etl_stage_duration_seconds", time.Since(start).Seconds(), labels)
}

func trackRecords(table string, n int) {
	metrics.IncCounter("etl_records_total", float64(n), metrics.Labels{"table": table})
}
