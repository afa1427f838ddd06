// Package config defines the pipeline configuration loaded at startup and
// passed explicitly into the stage drivers. The core packages never read
// ambient state; everything they need arrives through this struct.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the full pipeline configuration, one JSON document.
type Config struct {
	// Job names this pipeline for logs and metric tags.
	Job string `json:"job"`

	Source      Source      `json:"source"`
	ObjectStore ObjectStore `json:"object_store"`
	Warehouse   Warehouse   `json:"warehouse"`
}

// Source is the transactional database the ingest stage scans.
type Source struct {
	// DSN is a pgx connection string. ${VAR} references expand from the
	// environment at load time so credentials stay out of the file.
	DSN string `json:"dsn"`
}

// ObjectStore names the S3 buckets the snapshots live in.
type ObjectStore struct {
	Region string `json:"region"`

	// IngestBucket receives raw JSON snapshots; ProcessedBucket the
	// conformed parquet datasets.
	IngestBucket    string `json:"ingest_bucket"`
	ProcessedBucket string `json:"processed_bucket"`
}

// Warehouse selects and configures the load target.
type Warehouse struct {
	Kind             string `json:"kind"` // "postgres", "sqlite", "mssql"
	DSN              string `json:"dsn"`
	AutoCreateTables bool   `json:"auto_create_tables"`
}

// Load reads and decodes a config file, expanding ${VAR} environment
// references inside the DSNs.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg.Source.DSN = os.ExpandEnv(cfg.Source.DSN)
	cfg.Warehouse.DSN = os.ExpandEnv(cfg.Warehouse.DSN)
	return cfg, nil
}

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding, pointing at the config path that caused it.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// Validate checks a config for problems. Errors make the config unusable for
// at least one stage; warnings flag likely mistakes. Each stage binary only
// needs part of the config, so per-stage helpers below scope the checks.
func Validate(cfg Config) []Issue {
	var issues []Issue
	issues = append(issues, ValidateIngest(cfg)...)
	issues = append(issues, ValidateTransform(cfg)...)
	issues = append(issues, ValidateLoad(cfg)...)
	return dedupe(issues)
}

// ValidateIngest checks the fields the ingest stage needs.
func ValidateIngest(cfg Config) []Issue {
	var issues []Issue
	if cfg.Source.DSN == "" {
		issues = append(issues, Issue{SeverityError, "source.dsn", "missing source database DSN"})
	}
	issues = append(issues, requireBucket(cfg, "ingest_bucket", cfg.ObjectStore.IngestBucket)...)
	return issues
}

// ValidateTransform checks the fields the transform stage needs.
func ValidateTransform(cfg Config) []Issue {
	var issues []Issue
	issues = append(issues, requireBucket(cfg, "ingest_bucket", cfg.ObjectStore.IngestBucket)...)
	issues = append(issues, requireBucket(cfg, "processed_bucket", cfg.ObjectStore.ProcessedBucket)...)
	if cfg.ObjectStore.IngestBucket != "" && cfg.ObjectStore.IngestBucket == cfg.ObjectStore.ProcessedBucket {
		issues = append(issues, Issue{SeverityWarning, "object_store",
			"ingest and processed buckets are the same; raw and conformed snapshots will share a namespace"})
	}
	return issues
}

// ValidateLoad checks the fields the load stage needs.
func ValidateLoad(cfg Config) []Issue {
	var issues []Issue
	issues = append(issues, requireBucket(cfg, "processed_bucket", cfg.ObjectStore.ProcessedBucket)...)
	if cfg.Warehouse.Kind == "" {
		issues = append(issues, Issue{SeverityError, "warehouse.kind", "missing warehouse kind"})
	}
	if cfg.Warehouse.DSN == "" {
		issues = append(issues, Issue{SeverityError, "warehouse.dsn", "missing warehouse DSN"})
	}
	return issues
}

func requireBucket(cfg Config, name, value string) []Issue {
	var issues []Issue
	if value == "" {
		issues = append(issues, Issue{SeverityError, "object_store." + name, "missing bucket name"})
	}
	if cfg.ObjectStore.Region == "" {
		issues = append(issues, Issue{SeverityError, "object_store.region", "missing region"})
	}
	return issues
}

func dedupe(issues []Issue) []Issue {
	seen := make(map[Issue]struct{}, len(issues))
	out := issues[:0]
	for _, iss := range issues {
		if _, ok := seen[iss]; ok {
			continue
		}
		seen[iss] = struct{}{}
		out = append(out, iss)
	}
	return out
}

// HasError reports whether any issue is severity error.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
