package config

import (
	"fmt"
	"time"
)

// ArtifactsConfig configures run artifact storage and retention.
type ArtifactsConfig struct {
	// Backend selects the storage backend: "local" or "s3".
	// Default: "local"
	Backend string `yaml:"backend"`

	// Dir is the base directory for the local backend. Default: "artifacts"
	Dir string `yaml:"dir"`

	// Retention is how long run artifacts are kept, as a Go duration
	// string such as "720h". Empty keeps them forever.
	Retention string `yaml:"retention"`

	// PruneInterval is how often retention is enforced. Default: "1h"
	PruneInterval string `yaml:"prune_interval"`

	// S3 configures the S3-compatible backend.
	S3 S3Config `yaml:"s3"`
}

// S3Config holds settings for an S3-compatible object store.
type S3Config struct {
	// Bucket is the bucket name. Required when the backend is "s3".
	Bucket string `yaml:"bucket"`

	// Region is the AWS region. Default: "us-east-1"
	Region string `yaml:"region"`

	// Endpoint overrides the endpoint URL, for MinIO and other
	// S3-compatible stores.
	Endpoint string `yaml:"endpoint"`

	// Prefix is an optional key prefix for all stored objects.
	Prefix string `yaml:"prefix"`

	// AccessKeyID supplies a static credential. When empty the default
	// AWS credential chain is used.
	AccessKeyID string `yaml:"access_key_id"`

	// SecretAccessKey supplies a static credential.
	SecretAccessKey string `yaml:"secret_access_key"`

	// UsePathStyle forces path-style addressing, required by MinIO.
	UsePathStyle bool `yaml:"use_path_style"`
}

// RegistryConfig configures the run registry database.
type RegistryConfig struct {
	// Path is the SQLite database file. ":memory:" keeps the registry
	// in memory for the lifetime of the process. Default: "runs.db"
	Path string `yaml:"path"`
}

// RetentionDuration parses the retention period. Zero means keep forever.
func (a ArtifactsConfig) RetentionDuration() (time.Duration, error) {
	return parseDuration(a.Retention)
}

// PruneIntervalDuration parses the prune interval.
func (a ArtifactsConfig) PruneIntervalDuration() (time.Duration, error) {
	return parseDuration(a.PruneInterval)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}
