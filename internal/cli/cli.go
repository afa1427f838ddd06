// Package cli carries the flag parsing and metrics wiring shared by the
// three stage binaries, so each main stays a thin driver.
package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"warehouse-etl/internal/config"
	"warehouse-etl/internal/metrics"
	"warehouse-etl/internal/metrics/datadog"
)

// Flags are the options every stage binary accepts.
type Flags struct {
	ConfigPath     string
	MetricsBackend string
	Validate       bool
	Verbose        bool
}

// Parse reads the standard flag set from the command line.
func Parse() Flags {
	var f Flags
	flag.StringVar(&f.ConfigPath, "config", "configs/pipeline.json", "pipeline config JSON path")
	flag.StringVar(&f.MetricsBackend, "metrics-backend", "none", "metrics backend to use (datadog, none)")
	flag.BoolVar(&f.Validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&f.Verbose, "v", false, "enable verbose logs")
	flag.Parse()
	return f
}

// ReportIssues prints validation issues and exits on errors. Returns true
// when the caller should stop because -validate was requested.
func ReportIssues(issues []config.Issue, f Flags) bool {
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		log.Printf("configuration is invalid: %v", f.ConfigPath)
		os.Exit(1)
	}
	if f.Validate {
		log.Printf("configuration is valid: %v", f.ConfigPath)
		return true
	}
	return false
}

// SetupMetrics installs the configured metrics backend and returns a
// shutdown function. Backend selection: flag, then METRICS_BACKEND, then
// disabled.
func SetupMetrics(f Flags, job string) func() {
	name := f.MetricsBackend
	if name == "" {
		name = os.Getenv("METRICS_BACKEND")
	}
	if job == "" {
		job = "warehouse_etl"
	}

	switch name {
	case "datadog":
		// The backend buffers observations, submits them periodically, and
		// submits one final time on Close().
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName:    job,
			Tags:       datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: backend=datadog job_name=%v", job)
		metrics.SetBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: datadog close/flush error: %v", err)
			}
		}

	case "", "none":
		if f.Verbose {
			log.Printf("metrics: disabled (backend=%q)", name)
		}
		return func() {}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", name)
		return func() {}
	}
}

// Fatalf prints to stderr and exits nonzero.
func Fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
