package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/Epistemic-Technology/zotero/zotero"

	"github.com/Epistemic-Technology/pdf-transcribe/models"
)

// ZoteroCredentials identifies the Zotero library PDFs are fetched from
type ZoteroCredentials struct {
	APIKey    string `yaml:"api_key"`
	LibraryID string `yaml:"library_id"`
}

// Fetcher retrieves PDF bytes from the supported sources
type Fetcher struct {
	HTTPClient *http.Client
	Zotero     ZoteroCredentials
	// MaxBytes caps the size of a fetched document; 0 means unlimited
	MaxBytes int64
}

// NewFetcher creates a fetcher with the given Zotero credentials and size limit
func NewFetcher(creds ZoteroCredentials, maxBytes int64) *Fetcher {
	return &Fetcher{
		HTTPClient: http.DefaultClient,
		Zotero:     creds,
		MaxBytes:   maxBytes,
	}
}

// GetData retrieves PDF data from the source and checks that it is a PDF within the size limit
func (f *Fetcher) GetData(ctx context.Context, sourceInfo models.SourceInfo) (models.PdfData, error) {
	var data models.PdfData
	var err error

	switch {
	case sourceInfo.Path != "":
		data, err = f.GetFromFile(sourceInfo.Path)
	case sourceInfo.URL != "":
		data, err = f.GetFromURL(ctx, sourceInfo.URL)
	case sourceInfo.ZoteroID != "":
		data, err = f.GetFromZotero(ctx, sourceInfo.ZoteroID)
	default:
		return nil, errors.New("no data provided")
	}
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, errors.New("no data retrieved")
	}
	if err := CheckInput(data, f.MaxBytes); err != nil {
		return nil, err
	}

	return data, nil
}

// GetFromFile reads a PDF from the local filesystem
func (f *Fetcher) GetFromFile(path string) (models.PdfData, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if f.MaxBytes > 0 && info.Size() > f.MaxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, path, info.Size(), f.MaxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// GetFromURL fetches PDF data from a URL
func (f *Fetcher) GetFromURL(ctx context.Context, url string) (models.PdfData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: HTTP %d", url, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if f.MaxBytes > 0 {
		// Read one byte past the limit so oversized bodies are detected by CheckInput
		body = io.LimitReader(resp.Body, f.MaxBytes+1)
	}
	return io.ReadAll(body)
}

// GetFromZotero fetches the attachment file of a Zotero item
func (f *Fetcher) GetFromZotero(ctx context.Context, zoteroID string) (models.PdfData, error) {
	if f.Zotero.APIKey == "" || f.Zotero.LibraryID == "" {
		return nil, errors.New("ZOTERO_API_KEY and ZOTERO_LIBRARY_ID must be set to fetch from Zotero")
	}
	client := zotero.NewClient(f.Zotero.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(f.Zotero.APIKey))
	data, err := client.File(ctx, zoteroID)
	if err != nil {
		return nil, err
	}
	return data, nil
}
