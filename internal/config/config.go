// Package config loads pdf-transcribe settings from defaults, an optional YAML file, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/llm"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/logger"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/pdf"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/transcribe"
)

const (
	// ConfigPathEnv names the variable holding the YAML config path when none is passed explicitly
	ConfigPathEnv = "PDF_TRANSCRIBE_CONFIG"

	DefaultMaxFileSizeMB = 200
	// DefaultOutputFile is where the CLI writes a transcript when no output path is given
	DefaultOutputFile = "transcription.txt"
)

// Config holds every setting shared by the CLI and the MCP server
type Config struct {
	Transcription llm.Config            `yaml:"transcription"`
	Scale         float64               `yaml:"scale"`
	JPEGQuality   int                   `yaml:"jpeg_quality"`
	MaxFileSizeMB int                   `yaml:"max_file_size_mb"`
	Zotero        pdf.ZoteroCredentials `yaml:"zotero"`
	Log           logger.LogConfig      `yaml:"log"`

	// fallbackKeyProvider is the provider whose own variable supplied Transcription.APIKey, if any
	fallbackKeyProvider string
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Transcription: llm.Config{Provider: llm.ProviderOpenAI},
		Scale:         transcribe.DefaultScale,
		JPEGQuality:   pdf.DefaultJPEGQuality,
		MaxFileSizeMB: DefaultMaxFileSizeMB,
	}
}

// Load builds the configuration. Later sources override earlier ones:
// defaults, the YAML file at path (or $PDF_TRANSCRIBE_CONFIG), then the environment with .env applied.
func Load(path string) (Config, error) {
	cfg := Default()

	// .env never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env file: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Transcription.Provider, "TRANSCRIBE_PROVIDER")
	setString(&cfg.Transcription.Model, "TRANSCRIBE_MODEL")
	setString(&cfg.Transcription.BaseURL, "TRANSCRIBE_BASE_URL")
	setString(&cfg.Zotero.APIKey, "ZOTERO_API_KEY")
	setString(&cfg.Zotero.LibraryID, "ZOTERO_LIBRARY_ID")

	if err := setInt(&cfg.Transcription.RequestsPerMinute, "TRANSCRIBE_REQUESTS_PER_MINUTE"); err != nil {
		return err
	}
	if err := setInt(&cfg.JPEGQuality, "TRANSCRIBE_JPEG_QUALITY"); err != nil {
		return err
	}
	if err := setInt(&cfg.MaxFileSizeMB, "TRANSCRIBE_MAX_FILE_SIZE_MB"); err != nil {
		return err
	}
	if v := os.Getenv("TRANSCRIBE_SCALE"); v != "" {
		scale, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid TRANSCRIBE_SCALE %q: %w", v, err)
		}
		cfg.Scale = scale
	}

	setString(&cfg.Transcription.APIKey, "TRANSCRIBE_API_KEY")
	cfg.ResolveAPIKey()
	return nil
}

// ResolveAPIKey fills an empty API key from the current provider's own variable
// (OPENAI_API_KEY, GEMINI_API_KEY or GOOGLE_API_KEY). A key picked up this way for a different
// provider is discarded first, so changing the provider after Load never sends one
// provider's secret to another. Explicit keys from YAML or TRANSCRIBE_API_KEY are kept.
func (c *Config) ResolveAPIKey() {
	provider := normalizedProvider(c.Transcription.Provider)
	if c.fallbackKeyProvider != "" && c.fallbackKeyProvider != provider {
		c.Transcription.APIKey = ""
		c.fallbackKeyProvider = ""
	}
	if c.Transcription.APIKey != "" {
		return
	}
	if key := providerAPIKey(provider); key != "" {
		c.Transcription.APIKey = key
		c.fallbackKeyProvider = provider
	}
}

func normalizedProvider(provider string) string {
	if provider == "" {
		return llm.ProviderOpenAI
	}
	return strings.ToLower(provider)
}

// providerAPIKey falls back to the variable each provider's own tooling uses
func providerAPIKey(provider string) string {
	switch provider {
	case llm.ProviderGemini:
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	case llm.ProviderOllama:
		return ""
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

// Validate checks that numeric settings are in range and the provider is known
func (c Config) Validate() error {
	switch strings.ToLower(c.Transcription.Provider) {
	case "", llm.ProviderOpenAI, llm.ProviderGemini, llm.ProviderOllama:
	default:
		return fmt.Errorf("unsupported transcription provider: %s", c.Transcription.Provider)
	}
	if c.Scale <= 0 || c.Scale > 8 {
		return fmt.Errorf("scale must be greater than 0 and at most 8, got %v", c.Scale)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if c.MaxFileSizeMB < 0 {
		return fmt.Errorf("max_file_size_mb cannot be negative, got %d", c.MaxFileSizeMB)
	}
	if c.Transcription.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute cannot be negative, got %d", c.Transcription.RequestsPerMinute)
	}
	return nil
}

// MaxFileSizeBytes converts the file size limit to bytes; 0 means unlimited
func (c Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}
