package tools

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/llm"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/operations"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/pages"
	"github.com/Epistemic-Technology/pdf-transcribe/models"
)

// PDFSource is the set of ways a tool call can identify a PDF; exactly one should be set
type PDFSource struct {
	Path     string
	URL      string
	ZoteroID string
	RawData  []byte
}

// sourceOf decodes the base64 raw_data argument; trailing padding is optional
func sourceOf(path, url, zoteroID, rawData string) (PDFSource, error) {
	source := PDFSource{Path: path, URL: url, ZoteroID: zoteroID}
	if rawData == "" {
		return source, nil
	}
	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(rawData), "="))
	if err != nil {
		return source, fmt.Errorf("raw_data is not valid base64: %w", err)
	}
	source.RawData = data
	return source, nil
}

var errNoSource = errors.New("one of path, url, zotero_id or raw_data is required")

func (s PDFSource) request(expr string) (operations.Request, error) {
	set := 0
	for _, present := range []bool{s.Path != "", s.URL != "", s.ZoteroID != "", len(s.RawData) > 0} {
		if present {
			set++
		}
	}
	if set == 0 {
		return operations.Request{}, errNoSource
	}
	if set > 1 {
		return operations.Request{}, errors.New("only one of path, url, zotero_id or raw_data may be given")
	}
	return operations.Request{
		Source:  models.SourceInfo{Path: s.Path, URL: s.URL, ZoteroID: s.ZoteroID},
		RawData: s.RawData,
		Pages:   expr,
	}, nil
}

// toolErrorResult reports a bad page range or missing provider credentials as a tool error
// the caller can act on
func toolErrorResult(err error) (*mcp.CallToolResult, bool) {
	var credErr *llm.MissingCredentialError
	if !pages.IsValidationError(err) && !errors.As(err, &credErr) {
		return nil, false
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}, true
}
