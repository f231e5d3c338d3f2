package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.trackwise.yaml",               // Project-specific config (highest priority)
	"~/.config/trackwise/config.yaml", // User config
	"/etc/trackwise/config.yaml",      // System config (lowest priority)
}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables (a .env file in the working directory is read first)
// 3. ./.trackwise.yaml
// 4. ~/.config/trackwise/config.yaml
// 5. /etc/trackwise/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	// If custom path is provided, use only that path
	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// Load from standard paths in reverse priority order (lowest to highest)
		paths := make([]string, len(l.configPaths))
		copy(paths, l.configPaths)
		for i := len(paths)/2 - 1; i >= 0; i-- {
			opp := len(paths) - 1 - i
			paths[i], paths[opp] = paths[opp], paths[i]
		}

		for _, path := range paths {
			expandedPath := expandPath(path)
			if fileExists(expandedPath) {
				if err := l.loadFromFile(config, expandedPath); err != nil {
					// Log warning but continue with other config files
					fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
				}
			}
		}
	}

	// A .env file supplies environment variables without clobbering
	// ones already set.
	_ = godotenv.Load()

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	// The variant may come from a file or from TRACKWISE_VARIANT, so
	// model defaults are resolved only after both are applied.
	if config.Variant == VariantManaged {
		applyManagedModelDefaults(config)
	}

	config.Storage.Dir = expandPath(config.Storage.Dir)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// applyManagedModelDefaults swaps local-variant model defaults for the
// managed ones when the variant resolved to managed but the models
// were left untouched.
func applyManagedModelDefaults(config *Config) {
	local := DefaultConfig()
	managed := ManagedDefaults()
	if config.Embedding.Model == local.Embedding.Model {
		config.Embedding.Model = managed.Embedding.Model
		config.Embedding.Endpoint = managed.Embedding.Endpoint
	}
	if config.Generation.Model == local.Generation.Model {
		config.Generation.Model = managed.Generation.Model
		config.Generation.Endpoint = managed.Generation.Endpoint
		if config.Generation.MaxTokens == local.Generation.MaxTokens {
			config.Generation.MaxTokens = managed.Generation.MaxTokens
		}
	}
	if config.Retrieval.TopK == local.Retrieval.TopK {
		config.Retrieval.TopK = managed.Retrieval.TopK
	}
}

// loadFromFile loads configuration from a YAML file and merges it with existing config
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() before reaching here
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		"TRACKWISE_VARIANT":    func(v string) error { config.Variant = v; return nil },
		"TRACKWISE_AUTH_TOKEN": func(v string) error { config.Auth.Token = v; return nil },

		// AWS Config
		"TRACKWISE_AWS_REGION":              func(v string) error { config.AWS.Region = v; return nil },
		"TRACKWISE_AWS_OPENSEARCH_ENDPOINT": func(v string) error { config.AWS.OpenSearchEndpoint = v; return nil },
		"TRACKWISE_AWS_OPENSEARCH_INDEX":    func(v string) error { config.AWS.OpenSearchIndex = v; return nil },
		"TRACKWISE_AWS_S3_BUCKET":           func(v string) error { config.AWS.S3Bucket = v; return nil },
		"TRACKWISE_AWS_S3_PREFIX":           func(v string) error { config.AWS.S3Prefix = v; return nil },
		"TRACKWISE_AWS_DYNAMO_TABLE":        func(v string) error { config.AWS.DynamoTable = v; return nil },

		// Embedding Config
		"TRACKWISE_EMBEDDING_MODEL":    func(v string) error { config.Embedding.Model = v; return nil },
		"TRACKWISE_EMBEDDING_ENDPOINT": func(v string) error { config.Embedding.Endpoint = v; return nil },
		"TRACKWISE_EMBEDDING_TIMEOUT":  func(v string) error { return parseDuration(v, &config.Embedding.Timeout) },
		"TRACKWISE_EMBEDDING_REQUESTS_PER_MINUTE": func(v string) error {
			return parseInt(v, &config.Embedding.RequestsPerMinute)
		},

		// Generation Config
		"TRACKWISE_GENERATION_MODEL":       func(v string) error { config.Generation.Model = v; return nil },
		"TRACKWISE_GENERATION_ENDPOINT":    func(v string) error { config.Generation.Endpoint = v; return nil },
		"TRACKWISE_GENERATION_MAX_TOKENS":  func(v string) error { return parseInt(v, &config.Generation.MaxTokens) },
		"TRACKWISE_GENERATION_TEMPERATURE": func(v string) error { return parseFloat(v, &config.Generation.Temperature) },
		"TRACKWISE_GENERATION_TIMEOUT":     func(v string) error { return parseDuration(v, &config.Generation.Timeout) },

		// Retrieval Config
		"TRACKWISE_RETRIEVAL_TOP_K":   func(v string) error { return parseInt(v, &config.Retrieval.TopK) },
		"TRACKWISE_RETRIEVAL_REPLACE": func(v string) error { return parseBool(v, &config.Retrieval.Replace) },

		// Storage Config
		"TRACKWISE_STORAGE_DIR":          func(v string) error { config.Storage.Dir = v; return nil },
		"TRACKWISE_STORAGE_INDEX_KEY":    func(v string) error { config.Storage.IndexKey = v; return nil },
		"TRACKWISE_STORAGE_CACHE_KEY":    func(v string) error { config.Storage.CacheKey = v; return nil },
		"TRACKWISE_STORAGE_WATCH_RELOAD": func(v string) error { return parseBool(v, &config.Storage.WatchReload) },

		// Server Config
		"TRACKWISE_SERVER_ADDR":    func(v string) error { config.Server.Addr = v; return nil },
		"TRACKWISE_SERVER_TIMEOUT": func(v string) error { return parseDuration(v, &config.Server.Timeout) },
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, expandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// Helper functions

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if strings.HasPrefix(absPath, "/etc/passwd") ||
		strings.HasPrefix(absPath, "/etc/shadow") ||
		strings.HasPrefix(absPath, "/proc/") ||
		strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// mergeConfigs merges source config into destination config.
// Only non-zero values from source overwrite destination.
func mergeConfigs(dst, src *Config) {
	if src.Version != "" {
		dst.Version = src.Version
	}
	if src.Variant != "" {
		dst.Variant = src.Variant
	}
	if src.Auth.Token != "" {
		dst.Auth.Token = src.Auth.Token
	}

	mergeAWSConfig(&dst.AWS, &src.AWS)
	mergeEmbeddingConfig(&dst.Embedding, &src.Embedding)
	mergeGenerationConfig(&dst.Generation, &src.Generation)
	mergeRetrievalConfig(&dst.Retrieval, &src.Retrieval)
	mergeStorageConfig(&dst.Storage, &src.Storage)
	mergeServerConfig(&dst.Server, &src.Server)
}

func mergeAWSConfig(dst, src *AWSConfig) {
	if src.Region != "" {
		dst.Region = src.Region
	}
	if src.OpenSearchEndpoint != "" {
		dst.OpenSearchEndpoint = src.OpenSearchEndpoint
	}
	if src.OpenSearchIndex != "" {
		dst.OpenSearchIndex = src.OpenSearchIndex
	}
	if src.S3Bucket != "" {
		dst.S3Bucket = src.S3Bucket
	}
	if src.S3Prefix != "" {
		dst.S3Prefix = src.S3Prefix
	}
	if src.DynamoTable != "" {
		dst.DynamoTable = src.DynamoTable
	}
}

func mergeEmbeddingConfig(dst, src *EmbeddingConfig) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
	if src.RequestsPerMinute != 0 {
		dst.RequestsPerMinute = src.RequestsPerMinute
	}
}

func mergeGenerationConfig(dst, src *GenerationConfig) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.MaxTokens != 0 {
		dst.MaxTokens = src.MaxTokens
	}
	if src.Temperature != 0 {
		dst.Temperature = src.Temperature
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
}

func mergeRetrievalConfig(dst, src *RetrievalConfig) {
	if src.TopK != 0 {
		dst.TopK = src.TopK
	}
	if src.Replace {
		dst.Replace = src.Replace
	}
}

func mergeStorageConfig(dst, src *StorageConfig) {
	if src.Dir != "" {
		dst.Dir = src.Dir
	}
	if src.IndexKey != "" {
		dst.IndexKey = src.IndexKey
	}
	if src.CacheKey != "" {
		dst.CacheKey = src.CacheKey
	}
	if src.WatchReload {
		dst.WatchReload = src.WatchReload
	}
}

func mergeServerConfig(dst, src *ServerConfig) {
	if src.Addr != "" {
		dst.Addr = src.Addr
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseFloat(s string, dst *float64) error {
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
