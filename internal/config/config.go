package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Store    StoreConfig    `yaml:"store"`
	Chunker  ChunkerConfig  `yaml:"chunker,omitempty"`
	Search   SearchConfig   `yaml:"search,omitempty"`
	Ingest   IngestConfig   `yaml:"ingest,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
}

// ProviderConfig holds embedding and completion backend configuration
type ProviderConfig struct {
	Name string `yaml:"name"` // "ollama" | "openai" | "stub"

	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"` // supports ${ENV_VAR}

	EmbedModel string `yaml:"embed_model"`
	ChatModel  string `yaml:"chat_model"`

	Dimensions int           `yaml:"dimensions"`        // vector length D, fixed per store
	Timeout    time.Duration `yaml:"timeout,omitempty"` // per HTTP request
}

// StoreConfig holds embedding store persistence configuration
type StoreConfig struct {
	Backend string `yaml:"backend"` // "sqlite" | "badger" | "file" | "s3" | "memory"

	// Path is the sqlite file, badger directory or snapshot directory
	// depending on Backend. If empty, a path under ~/.docrag/data is used.
	Path string `yaml:"path,omitempty"`

	// Key identifies the snapshot record inside the backend
	Key string `yaml:"key,omitempty"`

	// MinScore drops vector hits scoring below it; 0 keeps every hit
	MinScore float32 `yaml:"min_score,omitempty"`

	S3 S3Config `yaml:"s3,omitempty"`
}

// S3Config holds settings for the s3 snapshot backend
type S3Config struct {
	Bucket          string `yaml:"bucket,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"` // MinIO, R2, ...
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	UsePathStyle    bool   `yaml:"use_path_style,omitempty"`
}

// ChunkerConfig holds text splitting parameters (in characters)
type ChunkerConfig struct {
	Size    int `yaml:"size,omitempty"`
	Overlap int `yaml:"overlap,omitempty"`
}

// SearchConfig holds query-time configuration
type SearchConfig struct {
	TopK int `yaml:"top_k,omitempty"` // Number of context chunks per question
}

// IngestConfig holds ingestion pipeline configuration
type IngestConfig struct {
	Exclude      []string      `yaml:"exclude,omitempty"`       // doublestar patterns
	FetchTimeout time.Duration `yaml:"fetch_timeout,omitempty"` // for http(s) sources
	Force        bool          `yaml:"force,omitempty"`         // always re-ingest stored sources
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // "debug" | "info" | "warn" | "error"
	Dir   string `yaml:"dir,omitempty"`
}

// DefaultConfigPath returns ~/.docrag/config/docrag.yaml
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".docrag", "config", "docrag.yaml"), nil
}

// Load loads configuration from the default config file
// Default location: ~/.docrag/config/docrag.yaml
func Load() (*Config, error) {
	configPath, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromFile(configPath)
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			defaultPath, _ := DefaultConfigPath()
			return nil, &ConfigNotFoundError{
				RequestedPath: path,
				DefaultPath:   defaultPath,
			}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	_ = cfg.applyDefaults()
	return cfg
}

// ConfigNotFoundError is returned when config file is not found
type ConfigNotFoundError struct {
	RequestedPath string
	DefaultPath   string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found at: %s\n\nDefault location: %s\n\nYou can:\n"+
		"  1. Create the config file at the default location\n"+
		"  2. Specify a custom path with -config flag\n"+
		"  3. Run 'docrag ingest' once to write a default config file",
		e.RequestedPath, e.DefaultPath)
}

// IsConfigNotFound checks if error is config not found
func IsConfigNotFound(err error) bool {
	_, ok := err.(*ConfigNotFoundError)
	return ok
}

// expandPath expands ~ and $HOME to the user's home directory
// Supports both:
//
//	~/.docrag/data/docrag.db
//	$HOME/.docrag/data/docrag.db
func expandPath(path string) string {
	if strings.HasPrefix(path, "$HOME/") || path == "$HOME" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			var err error
			homeDir, err = os.UserHomeDir()
			if err != nil {
				return path
			}
		}
		if path == "$HOME" {
			return homeDir
		}
		return filepath.Join(homeDir, path[6:])
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// dataPath returns a path under ~/.docrag/data
func dataPath(name string) string {
	return expandPath(filepath.Join("~", ".docrag", "data", name))
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() error {
	if c.Provider.Name == "" {
		c.Provider.Name = "ollama"
	}
	switch c.Provider.Name {
	case "ollama":
		if c.Provider.BaseURL == "" {
			c.Provider.BaseURL = "http://localhost:11434/api"
		}
		if c.Provider.EmbedModel == "" {
			c.Provider.EmbedModel = "mxbai-embed-large"
		}
		if c.Provider.ChatModel == "" {
			c.Provider.ChatModel = "llama3.2:latest"
		}
		if c.Provider.Dimensions == 0 {
			c.Provider.Dimensions = 1024
		}
	case "openai":
		if c.Provider.EmbedModel == "" {
			c.Provider.EmbedModel = "text-embedding-3-small"
		}
		if c.Provider.ChatModel == "" {
			c.Provider.ChatModel = "gpt-4o-mini"
		}
		if c.Provider.Dimensions == 0 {
			c.Provider.Dimensions = 1536
		}
	}
	if c.Provider.Dimensions == 0 {
		c.Provider.Dimensions = 1024
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 60 * time.Second
	}
	c.Provider.APIKey = os.ExpandEnv(c.Provider.APIKey)

	if c.Store.Backend == "" {
		c.Store.Backend = "sqlite"
	}
	if c.Store.Key == "" {
		c.Store.Key = "orama_vector_embeddings"
	}
	if c.Store.Path != "" {
		c.Store.Path = expandPath(c.Store.Path)
	} else {
		switch c.Store.Backend {
		case "sqlite":
			c.Store.Path = dataPath("docrag.db")
		case "badger":
			c.Store.Path = dataPath("badger")
		case "file":
			c.Store.Path = dataPath("snapshots")
		}
	}
	c.Store.S3.AccessKeyID = os.ExpandEnv(c.Store.S3.AccessKeyID)
	c.Store.S3.SecretAccessKey = os.ExpandEnv(c.Store.S3.SecretAccessKey)
	if c.Store.S3.Region == "" {
		c.Store.S3.Region = "us-east-1"
	}

	if c.Chunker.Size == 0 {
		c.Chunker.Size = 800
	}
	if c.Chunker.Overlap == 0 {
		c.Chunker.Overlap = c.Chunker.Size / 8
	}

	if c.Search.TopK == 0 {
		c.Search.TopK = 5
	}

	if c.Ingest.FetchTimeout == 0 {
		c.Ingest.FetchTimeout = 30 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = expandPath(filepath.Join("~", ".docrag", "logs"))
	} else {
		c.Log.Dir = expandPath(c.Log.Dir)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "ollama", "stub":
	case "openai":
		if c.Provider.APIKey == "" {
			return fmt.Errorf("openai provider requires api_key")
		}
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider.Name)
	}

	if c.Provider.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got: %d", c.Provider.Dimensions)
	}

	switch c.Store.Backend {
	case "sqlite", "badger", "file":
		if c.Store.Path == "" {
			return fmt.Errorf("%s backend requires store.path", c.Store.Backend)
		}
	case "s3":
		if c.Store.S3.Bucket == "" {
			return fmt.Errorf("s3 backend requires store.s3.bucket")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported store backend: %s", c.Store.Backend)
	}

	if c.Store.MinScore < -1 || c.Store.MinScore > 1 {
		return fmt.Errorf("min_score must be between -1 and 1, got: %v", c.Store.MinScore)
	}

	if c.Chunker.Size <= 0 {
		return fmt.Errorf("chunker.size must be positive, got: %d", c.Chunker.Size)
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		return fmt.Errorf("chunker.overlap must be in [0, %d), got: %d", c.Chunker.Size, c.Chunker.Overlap)
	}

	if c.Search.TopK <= 0 || c.Search.TopK > 100 {
		return fmt.Errorf("top_k must be between 1 and 100, got: %d", c.Search.TopK)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %s", c.Log.Level)
	}

	return nil
}

// Save saves the configuration to the default location
func (c *Config) Save() error {
	configPath, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return c.SaveToFile(configPath)
}

// SaveToFile saves the configuration to a specific file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

const defaultConfigTemplate = `# docrag configuration
#
# Copy and edit this file for your environment.
# Default location: $HOME/.docrag/config/docrag.yaml

provider:
  # "ollama" (local), "openai" (any OpenAI-compatible API) or "stub" (offline)
  name: ollama
  base_url: http://localhost:11434/api
  embed_model: mxbai-embed-large
  chat_model: llama3.2:latest
  dimensions: 1024
  timeout: 60s

  # OpenAI-compatible configuration (alternative)
  # name: openai
  # api_key: ${OPENAI_API_KEY}
  # embed_model: text-embedding-3-small
  # chat_model: gpt-4o-mini
  # dimensions: 1536

store:
  # "sqlite" | "badger" | "file" | "s3" | "memory"
  backend: sqlite
  path: ~/.docrag/data/docrag.db
  key: orama_vector_embeddings

chunker:
  size: 800
  overlap: 100

search:
  top_k: 5

ingest:
  exclude:
    - "**/node_modules/**"
  fetch_timeout: 30s

log:
  level: info
  dir: ~/.docrag/logs
`

// WriteDefaultTemplate creates a default configuration file if it does not exist.
// It returns true if a file was created, false if it already existed.
func WriteDefaultTemplate(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("config path is empty")
	}
	path = expandPath(path)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("failed to write config template: %w", err)
	}

	return true, nil
}
