package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/logger"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/operations"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/storage"
	"github.com/Epistemic-Technology/pdf-transcribe/resources"
	"github.com/Epistemic-Technology/pdf-transcribe/tools"
)

const Name = "pdf-transcribe"

// CreateServer registers the transcription tools and transcript resources on a new MCP server
func CreateServer(svc *operations.Service, version string, log logger.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil)

	transcriptHandler := resources.NewTranscriptResourceHandler(svc.Store)
	readTranscript := func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return transcriptHandler.ReadResource(ctx, req.Params.URI)
	}

	mcp.AddTool(server, tools.PDFPagesTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PDFPagesQuery) (*mcp.CallToolResult, *tools.PDFPagesResponse, error) {
		return tools.PDFPagesToolHandler(ctx, req, query, svc, log)
	})

	mcp.AddTool(server, tools.PDFTranscribeTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PDFTranscribeQuery) (*mcp.CallToolResult, *tools.PDFTranscribeResponse, error) {
		result, response, err := tools.PDFTranscribeToolHandler(ctx, req, query, svc, log)
		if err == nil && response != nil {
			registerTranscripts(ctx, server, transcriptHandler, readTranscript, log)
		}
		return result, response, err
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: storage.ResourceScheme + "://{transcriptId}",
		Name:        "transcript",
		Description: "Plain-text transcription of the selected PDF pages",
		MIMEType:    "text/plain",
	}, readTranscript)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: storage.ResourceScheme + "://{transcriptId}/info",
		Name:        "transcript-info",
		Description: "Source, selected pages and creation time of a transcript",
		MIMEType:    "application/json",
	}, readTranscript)

	registerTranscripts(context.Background(), server, transcriptHandler, readTranscript, log)

	return server
}

// registerTranscripts adds every stored transcript as a concrete resource so clients can list them
func registerTranscripts(ctx context.Context, server *mcp.Server, h *resources.TranscriptResourceHandler, read mcp.ResourceHandler, log logger.Logger) {
	list, err := h.ListResources(ctx)
	if err != nil {
		log.Warn("Failed to list transcripts: %v", err)
		return
	}
	for _, r := range list {
		server.AddResource(r, read)
	}
}
