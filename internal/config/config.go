package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/docstore/internal/domain/schema"
)

// Config holds the docstore API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds search backend connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds the default index name and its field mapping.
type IndexConfig struct {
	Name                  string   `yaml:"name"`
	TextField             string   `yaml:"text_field"`
	NameField             string   `yaml:"name_field"`
	ExternalSourceIDField string   `yaml:"external_source_id_field"`
	SearchFields          []string `yaml:"search_fields"`
	TagFields             []string `yaml:"tag_fields"`
	ExcludedMetaFields    []string `yaml:"excluded_meta_fields"`
	EmbeddingField        string   `yaml:"embedding_field"`
	EmbeddingDim          int      `yaml:"embedding_dim"`
}

// Schema builds the domain index schema from the mapping settings.
func (ic IndexConfig) Schema() (schema.IndexSchema, error) {
	opts := []schema.Option{
		schema.WithTextField(ic.TextField),
		schema.WithNameField(ic.NameField),
		schema.WithExternalSourceIDField(ic.ExternalSourceIDField),
	}
	if len(ic.SearchFields) > 0 {
		opts = append(opts, schema.WithSearchFields(ic.SearchFields...))
	}
	if len(ic.TagFields) > 0 {
		opts = append(opts, schema.WithTagFields(ic.TagFields...))
	}
	if len(ic.ExcludedMetaFields) > 0 {
		opts = append(opts, schema.WithExcludedMetaFields(ic.ExcludedMetaFields...))
	}
	if ic.EmbeddingField != "" {
		opts = append(opts, schema.WithEmbedding(ic.EmbeddingField, ic.EmbeddingDim))
	}
	s, err := schema.New(opts...)
	if err != nil {
		return schema.IndexSchema{}, fmt.Errorf("index mapping: %w", err)
	}
	return s, nil
}

// EmbeddingConfig holds embedding provider settings. An empty provider
// disables embedding features.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider"`
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	Dimensions   int    `yaml:"dimensions"`
	Instruction  string `yaml:"instruction"`
	User         string `yaml:"user"`
	CacheEnabled bool   `yaml:"cache_enabled"`

	// Token budget caps. Zero means unlimited.
	BudgetDailyTokens   int64  `yaml:"budget_daily_tokens"`
	BudgetMonthlyTokens int64  `yaml:"budget_monthly_tokens"`
	BudgetAction        string `yaml:"budget_action"` // warn, reject
}

// Enabled reports whether an embedding provider is configured.
func (ec EmbeddingConfig) Enabled() bool { return ec.Provider != "" }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.Name == "" {
		c.Index.Name = "document"
	}
	if c.Index.TextField == "" {
		c.Index.TextField = schema.DefaultTextField
	}
	if c.Index.NameField == "" {
		c.Index.NameField = schema.DefaultNameField
	}
	if c.Index.ExternalSourceIDField == "" {
		c.Index.ExternalSourceIDField = schema.DefaultExternalSourceIDField
	}
	if c.Embedding.BudgetAction == "" {
		c.Embedding.BudgetAction = "warn"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Index.EmbeddingField != "" && c.Index.EmbeddingDim <= 0 {
		return fmt.Errorf("index.embedding_dim must be positive when index.embedding_field is set")
	}
	if c.Embedding.Enabled() {
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required when embedding.provider is set")
		}
		if c.Index.EmbeddingField == "" {
			return fmt.Errorf("index.embedding_field is required when embedding.provider is set")
		}
		if a := c.Embedding.BudgetAction; a != "" && a != "warn" && a != "reject" {
			return fmt.Errorf("embedding.budget_action must be warn or reject, got %q", a)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
