package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/logger"
)

var defaultOpenAIModel = string(shared.ChatModelGPT5Mini)

type openAITranscriber struct {
	client openai.Client
	model  string
	log    logger.Logger
}

func newOpenAITranscriber(cfg Config, log logger.Logger) *openAITranscriber {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAITranscriber{
		client: openai.NewClient(opts...),
		model:  model,
		log:    log,
	}
}

func (t *openAITranscriber) Transcribe(ctx context.Context, image Image) (string, error) {
	dataURL := "data:" + image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(image.Data)

	t.log.Debug("Calling OpenAI API with %d byte image", len(image.Data))
	response, err := t.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ResponsesModel(t.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(
					responses.ResponseInputMessageContentListParam{
						responses.ResponseInputContentUnionParam{
							OfInputImage: &responses.ResponseInputImageParam{
								ImageURL: openai.String(dataURL),
								Detail:   responses.ResponseInputImageDetailHigh,
							},
						},
						responses.ResponseInputContentParamOfInputText(TranscriptionPrompt),
					},
					"user",
				),
			},
		},
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	return response.OutputText(), nil
}

func classifyOpenAIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &ServiceError{Provider: ProviderOpenAI, Message: "the API key was rejected", Err: err}
		case http.StatusTooManyRequests:
			return &ServiceError{Provider: ProviderOpenAI, Message: "rate limited by the API", Err: err}
		}
	}
	return &ServiceError{
		Provider: ProviderOpenAI,
		Message:  "failed to get a response from the AI model, check your API key and network connection",
		Err:      err,
	}
}
