package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/logger"
)

const (
	defaultGeminiModel = "gemini-2.5-flash"
	defaultOllamaModel = "llava"
)

// langChainTranscriber sends page images to any langchaingo model that accepts binary parts
type langChainTranscriber struct {
	provider string
	model    string
	llm      llms.Model
	log      logger.Logger
}

func newLangChainTranscriber(ctx context.Context, provider string, cfg Config, log logger.Logger) (*langChainTranscriber, error) {
	var model llms.Model
	var err error
	name := cfg.Model

	switch provider {
	case ProviderGemini:
		if name == "" {
			name = defaultGeminiModel
		}
		log.Debug("Initializing Gemini vision model %s", name)
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(name),
		)
	case ProviderOllama:
		if name == "" {
			name = defaultOllamaModel
		}
		log.Debug("Initializing Ollama vision model %s", name)
		opts := []ollama.Option{ollama.WithModel(name)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported langchain provider: %s", provider)
	}
	if err != nil {
		return nil, err
	}

	return &langChainTranscriber{provider: provider, model: name, llm: model, log: log}, nil
}

func (t *langChainTranscriber) Transcribe(ctx context.Context, image Image) (string, error) {
	t.log.Debug("Sending %d byte image to %s", len(image.Data), t.model)

	completion, err := t.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(image.MIMEType, image.Data),
				llms.TextPart(TranscriptionPrompt),
			},
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", &ServiceError{
			Provider: t.provider,
			Message:  "failed to get a response from the AI model, check your API key and network connection",
			Err:      err,
		}
	}
	if len(completion.Choices) == 0 {
		return "", &ServiceError{Provider: t.provider, Message: "the model returned no choices"}
	}

	return completion.Choices[0].Content, nil
}
