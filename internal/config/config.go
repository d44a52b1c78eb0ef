// Package config loads and persists the application configuration.
//
// Configuration lives in a TOML file (default ~/.evidentia/config.toml,
// written with owner-only permissions because it may hold API keys).
// A .env file in the working directory is folded into the environment
// first, and secrets resolve environment variables before file values,
// so deployments can keep keys out of the file entirely.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

// Default configuration values.
const (
	DefaultHTTPHost        = "127.0.0.1"
	DefaultHTTPPort        = 8480
	DefaultChunkSize       = 1000
	DefaultChunkOverlap    = 150
	DefaultQueueSize       = 256
	DefaultWorkers         = 4
	DefaultMaxUploadMB     = 50
	DefaultTopK            = 10
	DefaultMaxTopK         = 1000
	DefaultLexicalWeight   = 0.3
	DefaultScoreThreshold  = 0.25
	DefaultRatePerMinute   = 120
	DefaultRateBurst       = 20
	DefaultEmbedKeyEnv     = "OPENAI_API_KEY"
	DefaultGenerateKeyEnv  = "OPENAI_API_KEY"
	DefaultQdrantKeyEnv    = "QDRANT_API_KEY"
	DefaultMinioAccessEnv  = "MINIO_ACCESS_KEY"
	DefaultMinioSecretEnv  = "MINIO_SECRET_KEY"
	DefaultWatchSettleSecs = 2
)

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Storage    StorageConfig    `toml:"storage"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Generation GenerationConfig `toml:"generation"`
	Vector     VectorConfig     `toml:"vector"`
	Chunking   ChunkingConfig   `toml:"chunking"`
	Search     SearchConfig     `toml:"search"`
	Ingest     IngestConfig     `toml:"ingest"`
	Watch      WatchConfig      `toml:"watch"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// RatePerMinute and RateBurst bound each tenant's request rate.
	RatePerMinute int `toml:"rate_per_minute"`
	RateBurst     int `toml:"rate_burst"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig holds metadata and blob storage settings.
type StorageConfig struct {
	// DataDir is where the SQLite database lives
	// (default ~/.evidentia/data).
	DataDir string `toml:"data_dir"`

	// BlobBackend selects the object store: "fs" or "minio".
	BlobBackend string `toml:"blob_backend"`

	// BlobDir is the filesystem blob root when BlobBackend is "fs"
	// (default ~/.evidentia/blobs).
	BlobDir string `toml:"blob_dir"`

	Minio MinioConfig `toml:"minio"`
}

// MinioConfig holds MinIO connection settings for the "minio" backend.
type MinioConfig struct {
	Endpoint     string `toml:"endpoint"`
	Bucket       string `toml:"bucket"`
	UseSSL       bool   `toml:"use_ssl"`
	AccessKey    string `toml:"access_key"`
	AccessKeyEnv string `toml:"access_key_env"`
	SecretKey    string `toml:"secret_key"`
	SecretKeyEnv string `toml:"secret_key_env"`
}

// ResolveAccessKey returns the access key, preferring the environment.
func (c MinioConfig) ResolveAccessKey() string {
	return resolveSecret(c.AccessKeyEnv, c.AccessKey)
}

// ResolveSecretKey returns the secret key, preferring the environment.
func (c MinioConfig) ResolveSecretKey() string {
	return resolveSecret(c.SecretKeyEnv, c.SecretKey)
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the backend: "openai" or "ollama".
	Provider    string `toml:"provider"`
	BaseURL     string `toml:"base_url"`
	Model       string `toml:"model"`
	APIKey      string `toml:"api_key"`
	APIKeyEnv   string `toml:"api_key_env"`
	TimeoutSecs int    `toml:"timeout_secs"`
	BatchSize   int    `toml:"batch_size"`
	Dimensions  int    `toml:"dimensions"`

	// OAuth client-credentials mode for gateways that front the
	// provider. When TokenURL is set the API key is not used.
	OAuthTokenURL      string   `toml:"oauth_token_url"`
	OAuthClientID      string   `toml:"oauth_client_id"`
	OAuthClientSecret  string   `toml:"oauth_client_secret"`
	OAuthClientScopes  []string `toml:"oauth_scopes"`
}

// ResolveAPIKey returns the API key, preferring the environment.
func (c EmbeddingConfig) ResolveAPIKey() string {
	return resolveSecret(c.APIKeyEnv, c.APIKey)
}

// GenerationConfig holds generation provider settings. Generation is
// optional; retrieval works without it.
type GenerationConfig struct {
	Enabled     bool   `toml:"enabled"`
	BaseURL     string `toml:"base_url"`
	Model       string `toml:"model"`
	APIKey      string `toml:"api_key"`
	APIKeyEnv   string `toml:"api_key_env"`
	TimeoutSecs int    `toml:"timeout_secs"`
	MaxTokens   int    `toml:"max_tokens"`
}

// ResolveAPIKey returns the API key, preferring the environment.
func (c GenerationConfig) ResolveAPIKey() string {
	return resolveSecret(c.APIKeyEnv, c.APIKey)
}

// VectorConfig selects and configures the vector index.
type VectorConfig struct {
	// Backend is "qdrant" or "memory".
	Backend string       `toml:"backend"`
	Qdrant  QdrantConfig `toml:"qdrant"`
}

// QdrantConfig contains connection details for a Qdrant index.
type QdrantConfig struct {
	URL         string `toml:"url"`
	APIKey      string `toml:"api_key"`
	APIKeyEnv   string `toml:"api_key_env"`
	Collection  string `toml:"collection"`
	TimeoutSecs int    `toml:"timeout_secs"`
}

// ResolveAPIKey returns the API key, preferring the environment.
func (c QdrantConfig) ResolveAPIKey() string {
	return resolveSecret(c.APIKeyEnv, c.APIKey)
}

// ChunkingConfig configures how extracted text is split.
type ChunkingConfig struct {
	// Size is the chunk length in runes.
	Size int `toml:"size"`

	// Overlap is how many runes consecutive chunks share.
	Overlap int `toml:"overlap"`
}

// SearchConfig configures retrieval behaviour.
type SearchConfig struct {
	// DefaultTopK applies when a request does not set a limit.
	DefaultTopK int `toml:"default_top_k"`

	// LexicalWeight is the keyword share of the blended score (0..1).
	LexicalWeight float64 `toml:"lexical_weight"`

	// ScoreThreshold drops results scoring below it.
	ScoreThreshold float64 `toml:"score_threshold"`
}

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	// QueueSize bounds the pending ingestion queue.
	QueueSize int `toml:"queue_size"`

	// Workers is the number of pipeline workers.
	Workers int `toml:"workers"`

	// MaxUploadMB rejects uploads larger than this.
	MaxUploadMB int `toml:"max_upload_mb"`
}

// WatchConfig configures drop-folder ingestion.
type WatchConfig struct {
	// Folders are watched for new files to ingest.
	Folders []WatchFolder `toml:"folders"`

	// SettleSecs is how long a file must stop growing before pickup.
	SettleSecs int `toml:"settle_secs"`
}

// WatchFolder maps one directory to the tenant its files belong to.
type WatchFolder struct {
	Path   string `toml:"path"`
	Tenant string `toml:"tenant"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// DefaultPath returns ~/.evidentia/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".evidentia", "config.toml"), nil
}

// Load reads configuration from path. A missing file returns defaults.
// A .env file in the working directory is loaded into the environment
// first so secret resolution can see it.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// LoadDefault loads from the default path, creating the file with
// defaults on first run.
func LoadDefault() (*Config, string, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, "", err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// Save writes the configuration to path with owner-only permissions.
// The write goes through a temp file and rename so a crash cannot
// leave a half-written config.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("restricting config permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp config: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// SetKey updates one of the settable secret keys and returns whether
// the key is known. Non-secret settings are edited in the file
// directly; this narrow surface exists for the set-key command.
func (c *Config) SetKey(key, value string) error {
	switch key {
	case "embedding.api_key":
		c.Embedding.APIKey = value
	case "generation.api_key":
		c.Generation.APIKey = value
	case "vector.qdrant.api_key":
		c.Vector.Qdrant.APIKey = value
	case "storage.minio.access_key":
		c.Storage.Minio.AccessKey = value
	case "storage.minio.secret_key":
		c.Storage.Minio.SecretKey = value
	default:
		return fmt.Errorf("%w: unknown key %q", domain.ErrInvalidInput, key)
	}
	return nil
}

// Validate reports configuration errors that would break startup.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", domain.ErrInvalidInput, c.Server.Port)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than size %d",
			domain.ErrInvalidInput, c.Chunking.Overlap, c.Chunking.Size)
	}
	switch c.Embedding.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, c.Embedding.Provider)
	}
	switch c.Vector.Backend {
	case "qdrant", "memory":
	default:
		return fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, c.Vector.Backend)
	}
	switch c.Storage.BlobBackend {
	case "fs", "minio":
	default:
		return fmt.Errorf("%w: unknown blob backend %q", domain.ErrInvalidInput, c.Storage.BlobBackend)
	}
	if c.Search.LexicalWeight < 0 || c.Search.LexicalWeight > 1 {
		return fmt.Errorf("%w: lexical weight %.2f outside [0,1]", domain.ErrInvalidInput, c.Search.LexicalWeight)
	}
	for _, folder := range c.Watch.Folders {
		if _, err := domain.ParseTenantID(folder.Tenant); err != nil {
			return fmt.Errorf("watch folder %q: %w", folder.Path, err)
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHTTPHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultHTTPPort
	}
	if cfg.Server.RatePerMinute == 0 {
		cfg.Server.RatePerMinute = DefaultRatePerMinute
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = DefaultRateBurst
	}

	if cfg.Storage.BlobBackend == "" {
		cfg.Storage.BlobBackend = "fs"
	}
	if cfg.Storage.Minio.AccessKeyEnv == "" {
		cfg.Storage.Minio.AccessKeyEnv = DefaultMinioAccessEnv
	}
	if cfg.Storage.Minio.SecretKeyEnv == "" {
		cfg.Storage.Minio.SecretKeyEnv = DefaultMinioSecretEnv
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	// Ollama resolves its own localhost default; only OpenAI gets one here.
	if cfg.Embedding.BaseURL == "" && cfg.Embedding.Provider == "openai" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.Model == "" && cfg.Embedding.Provider == "openai" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = DefaultEmbedKeyEnv
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 60
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}

	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o-mini"
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = DefaultGenerateKeyEnv
	}
	if cfg.Generation.TimeoutSecs == 0 {
		cfg.Generation.TimeoutSecs = 60
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 1024
	}

	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "memory"
	}
	if cfg.Vector.Qdrant.Collection == "" {
		cfg.Vector.Qdrant.Collection = "evidentia_chunks"
	}
	if cfg.Vector.Qdrant.APIKeyEnv == "" {
		cfg.Vector.Qdrant.APIKeyEnv = DefaultQdrantKeyEnv
	}
	if cfg.Vector.Qdrant.TimeoutSecs == 0 {
		cfg.Vector.Qdrant.TimeoutSecs = 15
	}

	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = DefaultChunkSize
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = DefaultChunkOverlap
	}

	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = DefaultTopK
	}
	if cfg.Search.LexicalWeight == 0 {
		cfg.Search.LexicalWeight = DefaultLexicalWeight
	}
	if cfg.Search.ScoreThreshold == 0 {
		cfg.Search.ScoreThreshold = DefaultScoreThreshold
	}

	if cfg.Ingest.QueueSize == 0 {
		cfg.Ingest.QueueSize = DefaultQueueSize
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = DefaultWorkers
	}
	if cfg.Ingest.MaxUploadMB == 0 {
		cfg.Ingest.MaxUploadMB = DefaultMaxUploadMB
	}

	if cfg.Watch.SettleSecs == 0 {
		cfg.Watch.SettleSecs = DefaultWatchSettleSecs
	}
}

// resolveSecret prefers the named environment variable when it is set
// and non-empty, falling back to the literal file value.
func resolveSecret(envName, literal string) string {
	if envName != "" {
		if v := os.Getenv(envName); v != "" {
			return v
		}
	}
	return literal
}
