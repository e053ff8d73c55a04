package config

import (
	"fmt"
	"strings"
)

// Config is the main configuration structure for the distill pipeline.
type Config struct {
	Version   int             `yaml:"version"`
	Data      DataConfig      `yaml:"data"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Batching  BatchingConfig  `yaml:"batching"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Registry  RegistryConfig  `yaml:"registry"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// DataConfig locates the dataset and controls example assembly.
type DataConfig struct {
	// Dir is the dataset directory holding the split files.
	Dir string `yaml:"dir"`

	// Split selects the file group: "train", "val", or "test".
	// Default: "train"
	Split string `yaml:"split"`

	// Mode selects the file layout: "standard", "relevance", or "query".
	// Default: "standard"
	Mode string `yaml:"mode"`

	// MaxSourceLength caps encoded source width in token positions.
	// Default: 1024
	MaxSourceLength int `yaml:"max_source_length"`

	// MaxTargetLength caps encoded target width in token positions.
	// Default: 56
	MaxTargetLength int `yaml:"max_target_length"`

	// Prefix is prepended to every source line before encoding.
	Prefix string `yaml:"prefix"`

	// MaxExamples truncates the split to its first N examples (0 = all).
	MaxExamples int `yaml:"max_examples"`

	// Baseline zeroes relevance scores, keeping only the vector layout.
	Baseline bool `yaml:"baseline"`

	// KeepEOS keeps query-mode target end markers in tokenizer form
	// instead of stripping them.
	KeepEOS bool `yaml:"keep_eos"`

	// Separator splits context from query in relevance mode.
	// Default: "[SEP]"
	Separator string `yaml:"separator"`

	// SeparatorSpan is the number of positions reserved for separator
	// tokens in the relevance vector. Default: 4
	SeparatorSpan int `yaml:"separator_span"`
}

// TokenizerConfig selects the vocabulary.
type TokenizerConfig struct {
	// Path points at a tokenizer.json vocabulary file.
	Path string `yaml:"path"`

	// PadToken overrides the padding token. Default: "<pad>"
	PadToken string `yaml:"pad_token"`

	// WordMarker is the sub-word prefix marking word starts. Default: "Ġ"
	WordMarker string `yaml:"word_marker"`
}

// BatchingConfig controls collation and sampling.
type BatchingConfig struct {
	// BatchSize is the number of examples per batch. Default: 8
	BatchSize int `yaml:"batch_size"`

	// Seed fixes sampler randomness; 0 seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// ScoringConfig controls metric computation.
type ScoringConfig struct {
	// RougeTypes lists the ROUGE variants to compute.
	// Default: [rouge1, rouge2, rougeL]
	RougeTypes []string `yaml:"rouge_types"`

	// UseStemmer applies Porter stemming before matching. Default: true
	UseStemmer *bool `yaml:"use_stemmer"`

	// BootstrapSamples sets the resampling count for confidence
	// intervals. Default: 1000
	BootstrapSamples int `yaml:"bootstrap_samples"`
}

// Stemming reports whether scoring should stem tokens.
func (s ScoringConfig) Stemming() bool {
	return s.UseStemmer == nil || *s.UseStemmer
}

// Load reads the configuration file at path, resolving $include
// directives and environment variables, and applies defaults. The
// result is schema-checked and semantically validated.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := ValidateRaw(raw); err != nil {
		return nil, err
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if cfg.Data.Split == "" {
		cfg.Data.Split = "train"
	}
	if cfg.Data.Mode == "" {
		cfg.Data.Mode = "standard"
	}
	if cfg.Data.MaxSourceLength == 0 {
		cfg.Data.MaxSourceLength = 1024
	}
	if cfg.Data.MaxTargetLength == 0 {
		cfg.Data.MaxTargetLength = 56
	}
	if cfg.Data.Separator == "" {
		cfg.Data.Separator = "[SEP]"
	}
	if cfg.Data.SeparatorSpan == 0 {
		cfg.Data.SeparatorSpan = 4
	}
	if cfg.Tokenizer.PadToken == "" {
		cfg.Tokenizer.PadToken = "<pad>"
	}
	if cfg.Tokenizer.WordMarker == "" {
		cfg.Tokenizer.WordMarker = "Ġ"
	}
	if cfg.Batching.BatchSize == 0 {
		cfg.Batching.BatchSize = 8
	}
	if len(cfg.Scoring.RougeTypes) == 0 {
		cfg.Scoring.RougeTypes = []string{"rouge1", "rouge2", "rougeL"}
	}
	if cfg.Scoring.BootstrapSamples == 0 {
		cfg.Scoring.BootstrapSamples = 1000
	}
	if cfg.Artifacts.Backend == "" {
		cfg.Artifacts.Backend = "local"
	}
	if cfg.Artifacts.Dir == "" {
		cfg.Artifacts.Dir = "artifacts"
	}
	if cfg.Artifacts.PruneInterval == "" {
		cfg.Artifacts.PruneInterval = "1h"
	}
	if cfg.Artifacts.S3.Region == "" {
		cfg.Artifacts.S3.Region = "us-east-1"
	}
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "runs.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9090"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "distill"
	}
	if cfg.Tracing.SamplingRate == 0 {
		cfg.Tracing.SamplingRate = 1.0
	}
}

// ValidationError aggregates configuration issues into one error.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s", strings.Join(e.Issues, "; "))
}

// Validate applies semantic rules the schema cannot express. It expects
// defaults to be applied already.
func Validate(cfg *Config) error {
	var issues []string

	if err := ValidateVersion(cfg.Version); err != nil {
		issues = append(issues, err.Error())
	}
	switch cfg.Data.Mode {
	case "standard", "relevance", "query":
	default:
		issues = append(issues, fmt.Sprintf("data.mode %q is not one of standard, relevance, query", cfg.Data.Mode))
	}
	if cfg.Data.MaxSourceLength <= 0 {
		issues = append(issues, "data.max_source_length must be positive")
	}
	if cfg.Data.MaxTargetLength <= 0 {
		issues = append(issues, "data.max_target_length must be positive")
	}
	if cfg.Data.SeparatorSpan < 0 {
		issues = append(issues, "data.separator_span must not be negative")
	}
	if cfg.Batching.BatchSize <= 0 {
		issues = append(issues, "batching.batch_size must be positive")
	}
	for _, rt := range cfg.Scoring.RougeTypes {
		switch rt {
		case "rouge1", "rouge2", "rougeL":
		default:
			issues = append(issues, fmt.Sprintf("scoring.rouge_types contains unknown type %q", rt))
		}
	}
	if cfg.Scoring.BootstrapSamples <= 0 {
		issues = append(issues, "scoring.bootstrap_samples must be positive")
	}
	switch cfg.Artifacts.Backend {
	case "local", "s3":
	default:
		issues = append(issues, fmt.Sprintf("artifacts.backend %q is not one of local, s3", cfg.Artifacts.Backend))
	}
	if cfg.Artifacts.Backend == "s3" && strings.TrimSpace(cfg.Artifacts.S3.Bucket) == "" {
		issues = append(issues, "artifacts.s3.bucket is required for the s3 backend")
	}
	if _, err := cfg.Artifacts.RetentionDuration(); err != nil {
		issues = append(issues, fmt.Sprintf("artifacts.retention: %v", err))
	}
	if _, err := cfg.Artifacts.PruneIntervalDuration(); err != nil {
		issues = append(issues, fmt.Sprintf("artifacts.prune_interval: %v", err))
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		issues = append(issues, fmt.Sprintf("logging.format %q is not one of json, text", cfg.Logging.Format))
	}
	if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
		issues = append(issues, "tracing.sampling_rate must be between 0 and 1")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
