package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/logger"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/operations"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/pages"
)

type PDFPagesQuery struct {
	Path     string `json:"path,omitempty" jsonschema:"path to a PDF on the server's filesystem"`
	URL      string `json:"url,omitempty" jsonschema:"URL to download the PDF from"`
	ZoteroID string `json:"zotero_id,omitempty" jsonschema:"key of a Zotero attachment item"`
	RawData  string `json:"raw_data,omitempty" jsonschema:"base64 encoded PDF bytes"`
	Pages    string `json:"pages,omitempty" jsonschema:"optional page range expression to validate, e.g. 1-5, 8, 12-15"`
}

type PDFPagesResponse struct {
	PageCount    int    `json:"page_count"`
	DefaultRange string `json:"default_range"`
	Pages        []int  `json:"pages,omitempty"`
}

func PDFPagesTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PDFPagesQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "pdf-pages",
		Description: "Count the pages of a PDF and optionally validate a page range expression (for example \"1-5, 8, 12-15\") against it without transcribing anything",
		InputSchema: inputschema,
	}
}

func PDFPagesToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PDFPagesQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *PDFPagesResponse, error) {
	log.Info("pdf-pages tool called")

	source, err := sourceOf(query.Path, query.URL, query.ZoteroID, query.RawData)
	if err != nil {
		return nil, nil, err
	}
	request, err := source.request(query.Pages)
	if err != nil {
		return nil, nil, err
	}

	data, err := svc.LoadPDF(ctx, request)
	if err != nil {
		log.Error("pdf-pages tool failed: %v", err)
		return nil, nil, err
	}

	selection, err := svc.SelectPages(data, query.Pages)
	if err != nil {
		if result, ok := toolErrorResult(err); ok {
			return result, nil, nil
		}
		log.Error("pdf-pages tool failed: %v", err)
		return nil, nil, err
	}

	response := &PDFPagesResponse{
		PageCount:    selection.PageCount,
		DefaultRange: pages.DefaultExpression(selection.PageCount),
	}
	summary := fmt.Sprintf("The PDF has %d pages.", selection.PageCount)
	if query.Pages != "" {
		response.Pages = selection.Pages
		summary += fmt.Sprintf(" The range %q selects %d pages: %s.", query.Pages, len(selection.Pages), pages.FormatPageSet(selection.Pages))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: summary}},
	}, response, nil
}
