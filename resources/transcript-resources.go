package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/storage"
)

const (
	textMIMEType = "text/plain"
	jsonMIMEType = "application/json"
)

// TranscriptResourceHandler serves stored transcripts as MCP resources
type TranscriptResourceHandler struct {
	store storage.Store
}

// NewTranscriptResourceHandler creates a new transcript resource handler
func NewTranscriptResourceHandler(store storage.Store) *TranscriptResourceHandler {
	return &TranscriptResourceHandler{store: store}
}

// ListResources returns a text and an info resource for every stored transcript
func (h *TranscriptResourceHandler) ListResources(ctx context.Context) ([]*mcp.Resource, error) {
	transcripts, err := h.store.ListTranscripts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}

	var resources []*mcp.Resource
	for _, t := range transcripts {
		resources = append(resources,
			&mcp.Resource{
				URI:         storage.TranscriptURI(t.ID),
				Name:        fmt.Sprintf("%s (Transcript)", t.Source.String()),
				Description: fmt.Sprintf("Transcription of %d pages", len(t.Pages)),
				MIMEType:    textMIMEType,
			},
			&mcp.Resource{
				URI:         storage.TranscriptInfoURI(t.ID),
				Name:        fmt.Sprintf("%s (Info)", t.Source.String()),
				Description: "Source, selected pages and creation time of the transcript",
				MIMEType:    jsonMIMEType,
			},
		)
	}
	return resources, nil
}

// ReadResource reads transcript://{id} or transcript://{id}/info
func (h *TranscriptResourceHandler) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	prefix := storage.ResourceScheme + "://"
	if !strings.HasPrefix(uri, prefix) {
		return nil, fmt.Errorf("invalid URI scheme, expected %s", prefix)
	}

	parts := strings.Split(strings.TrimPrefix(uri, prefix), "/")
	id := parts[0]
	if id == "" {
		return nil, fmt.Errorf("invalid URI, missing transcript ID")
	}
	if len(parts) > 2 || (len(parts) == 2 && parts[1] != "info") {
		return nil, fmt.Errorf("unknown transcript resource: %s", uri)
	}

	info, err := h.store.GetTranscript(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, err
	}

	if len(parts) == 1 {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: textMIMEType, Text: info.Text}},
		}, nil
	}

	summary := map[string]any{
		"transcript_id": info.ID,
		"source":        info.Source,
		"pages":         info.Pages,
		"page_count":    info.PageCount,
		"created_at":    info.CreatedAt,
		"characters":    len(info.Text),
		"download":      storage.TranscriptURI(info.ID),
	}
	content, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode transcript info: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: jsonMIMEType, Text: string(content)}},
	}, nil
}
