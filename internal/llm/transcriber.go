package llm

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/logger"
)

// TranscriptionPrompt is sent with every page image
const TranscriptionPrompt = "Transcribe all text from this image accurately. Preserve the original line breaks and formatting as much as possible. If there is no text, return an empty response."

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Image is an encoded page image sent for transcription
type Image struct {
	Data     []byte
	MIMEType string
}

// Transcriber turns an image into plain text. An empty string means the image contains no text.
type Transcriber interface {
	Transcribe(ctx context.Context, image Image) (string, error)
}

// Config selects and configures the remote transcription service
type Config struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways, remote Ollama hosts)
	BaseURL string `yaml:"base_url"`
	// RequestsPerMinute paces calls to the provider; 0 disables pacing
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// MissingCredentialError is returned when a provider that needs an API key has none configured
type MissingCredentialError struct {
	Provider string
	EnvVar   string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("no API key configured for %s: set %s or TRANSCRIBE_API_KEY", e.Provider, e.EnvVar)
}

// ServiceError wraps a failed call to the remote transcription service
type ServiceError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// CredentialEnvVar names the provider specific environment variable holding its API key
func CredentialEnvVar(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderOllama:
		return ""
	default:
		return "OPENAI_API_KEY"
	}
}

// NewTranscriber builds the transcriber for cfg.Provider. Requests made through the returned
// transcriber share limiter; pass nil to disable pacing.
func NewTranscriber(ctx context.Context, cfg Config, limiter *rate.Limiter, log logger.Logger) (Transcriber, error) {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = ProviderOpenAI
	}

	if provider != ProviderOllama && cfg.APIKey == "" {
		return nil, &MissingCredentialError{Provider: provider, EnvVar: CredentialEnvVar(provider)}
	}

	log = log.With("provider", provider)

	var t Transcriber
	var err error
	switch provider {
	case ProviderOpenAI:
		t = newOpenAITranscriber(cfg, log)
	case ProviderGemini, ProviderOllama:
		t, err = newLangChainTranscriber(ctx, provider, cfg, log)
	default:
		return nil, fmt.Errorf("unsupported transcription provider: %s", cfg.Provider)
	}
	if err != nil {
		log.Error("Failed to create transcription client: %v", err)
		return nil, fmt.Errorf("error creating transcription client: %w", err)
	}

	return WithRateLimit(t, limiter, log), nil
}
