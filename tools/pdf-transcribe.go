package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/logger"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/operations"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/storage"
)

type PDFTranscribeQuery struct {
	Path     string `json:"path,omitempty" jsonschema:"path to a PDF on the server's filesystem"`
	URL      string `json:"url,omitempty" jsonschema:"URL to download the PDF from"`
	ZoteroID string `json:"zotero_id,omitempty" jsonschema:"key of a Zotero attachment item"`
	RawData  string `json:"raw_data,omitempty" jsonschema:"base64 encoded PDF bytes"`
	Pages    string `json:"pages,omitempty" jsonschema:"page range expression such as 1-5, 8, 12-15; defaults to every page"`
}

type PDFTranscribeResponse struct {
	TranscriptID  string   `json:"transcript_id"`
	ResourcePaths []string `json:"resource_paths"`
	Pages         []int    `json:"pages"`
	PageCount     int      `json:"page_count"`
	Cached        bool     `json:"cached"`
	Text          string   `json:"text"`
}

func PDFTranscribeTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PDFTranscribeQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "pdf-transcribe",
		Description: "Transcribe the text of selected PDF pages by rendering each page to an image and sending it to a vision model. Pages are processed one at a time; the result is plain text with a \"--- Page N ---\" label before each page that contained text, and can be downloaded later from the returned transcript:// resource.",
		InputSchema: inputschema,
	}
}

func PDFTranscribeToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PDFTranscribeQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *PDFTranscribeResponse, error) {
	log.Info("pdf-transcribe tool called")

	source, err := sourceOf(query.Path, query.URL, query.ZoteroID, query.RawData)
	if err != nil {
		return nil, nil, err
	}
	request, err := source.request(query.Pages)
	if err != nil {
		return nil, nil, err
	}

	info, cached, err := svc.GetOrTranscribe(ctx, request, newProgressReporter(ctx, req, log))
	if err != nil {
		if result, ok := toolErrorResult(err); ok {
			return result, nil, nil
		}
		log.Error("pdf-transcribe tool failed: %v", err)
		return nil, nil, err
	}

	response := &PDFTranscribeResponse{
		TranscriptID:  info.ID,
		ResourcePaths: storage.CalculateResourcePaths(info.ID),
		Pages:         info.Pages,
		PageCount:     info.PageCount,
		Cached:        cached,
		Text:          info.Text,
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Transcribed %d of %d pages. Download the transcript from %s.", len(info.Pages), info.PageCount, storage.TranscriptURI(info.ID)),
			},
		},
	}, response, nil
}
