package operations

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/llm"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/logger"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/pages"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/pdf"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/storage"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/transcribe"
	"github.com/Epistemic-Technology/pdf-transcribe/models"
)

type stubDocument struct{ pageCount int }

func (d stubDocument) PageCount() int { return d.pageCount }
func (d stubDocument) Page(n int) (pdf.Page, error) {
	return stubPage{}, nil
}
func (d stubDocument) Close() error { return nil }

type stubPage struct{}

func (stubPage) Render(scale float64) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, 2, 2)), nil
}
func (stubPage) Cleanup() {}

type stubOpener struct{ pageCount int }

func (o stubOpener) Open(models.PdfData) (pdf.Document, error) {
	return stubDocument{pageCount: o.pageCount}, nil
}

type stubTranscriber struct{ calls int }

func (s *stubTranscriber) Transcribe(ctx context.Context, img llm.Image) (string, error) {
	s.calls++
	return "text", nil
}

var samplePDF = []byte("%PDF-1.4\nfake body")

func newTestService(t *testing.T, pageCount int) (*Service, *stubTranscriber) {
	t.Helper()
	tr := &stubTranscriber{}
	return &Service{
		Fetcher:    pdf.NewFetcher(pdf.ZoteroCredentials{}, 1024),
		Pipeline:   transcribe.NewPipeline(stubOpener{pageCount: pageCount}, tr, logger.NewNoOpLogger()),
		Store:      storage.NewMemoryStore(),
		Logger:     logger.NewNoOpLogger(),
		CountPages: func(models.PdfData) (int, error) { return pageCount, nil },
	}, tr
}

func TestGetOrTranscribe_StoresAndReuses(t *testing.T) {
	svc, tr := newTestService(t, 4)
	ctx := context.Background()
	req := Request{RawData: samplePDF, Pages: "2-3"}

	info, cached, err := svc.GetOrTranscribe(ctx, req, nil)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, models.PageSet{2, 3}, info.Pages)
	assert.Equal(t, 4, info.PageCount)
	assert.Equal(t, "--- Page 2 ---\n\ntext\n\n--- Page 3 ---\n\ntext", info.Text)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, 2, tr.calls)

	again, cached, err := svc.GetOrTranscribe(ctx, req, nil)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, info.ID, again.ID)
	assert.Equal(t, 2, tr.calls, "cached result must not call the model again")

	_, cached, err = svc.GetOrTranscribe(ctx, Request{RawData: samplePDF, Pages: "1"}, nil)
	require.NoError(t, err)
	assert.False(t, cached, "different pages are a different transcript")
}

func TestGetOrTranscribe_DefaultsToAllPages(t *testing.T) {
	svc, tr := newTestService(t, 3)
	info, _, err := svc.GetOrTranscribe(context.Background(), Request{RawData: samplePDF}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PageSet{1, 2, 3}, info.Pages)
	assert.Equal(t, 3, tr.calls)
}

func TestGetOrTranscribe_InvalidRange(t *testing.T) {
	svc, tr := newTestService(t, 3)
	_, _, err := svc.GetOrTranscribe(context.Background(), Request{RawData: samplePDF, Pages: "2-9"}, nil)
	require.Error(t, err)
	assert.True(t, pages.IsValidationError(err))
	assert.ErrorIs(t, err, pages.ErrPageOutOfBounds)
	assert.Zero(t, tr.calls)
}

func TestGetOrTranscribe_FromFile(t *testing.T) {
	svc, _ := newTestService(t, 1)
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, samplePDF, 0644))

	info, _, err := svc.GetOrTranscribe(context.Background(), Request{Source: models.SourceInfo{Path: path}}, nil)
	require.NoError(t, err)
	assert.Equal(t, path, info.Source.Path)
}

func TestLoadPDF_Errors(t *testing.T) {
	svc, _ := newTestService(t, 1)
	ctx := context.Background()

	_, err := svc.LoadPDF(ctx, Request{RawData: []byte("hello")})
	assert.ErrorIs(t, err, pdf.ErrNotPDF)

	big := append([]byte("%PDF-1.4"), make([]byte, 2048)...)
	_, err = svc.LoadPDF(ctx, Request{RawData: big})
	assert.ErrorIs(t, err, pdf.ErrFileTooLarge)

	_, err = svc.LoadPDF(ctx, Request{})
	assert.Error(t, err)
}

func TestSelectPages_CountFailure(t *testing.T) {
	svc, _ := newTestService(t, 1)
	svc.CountPages = func(models.PdfData) (int, error) { return 0, errors.New("broken xref") }

	_, err := svc.SelectPages(samplePDF, "1")
	assert.ErrorContains(t, err, "broken xref")
}

func TestGetOrTranscribe_WithoutPipeline(t *testing.T) {
	svc, _ := newTestService(t, 4)
	svc.Pipeline = nil
	svc.Unavailable = &llm.MissingCredentialError{Provider: llm.ProviderOpenAI, EnvVar: "OPENAI_API_KEY"}
	ctx := context.Background()

	selection, err := svc.SelectPages(samplePDF, "2-3")
	require.NoError(t, err)
	assert.Equal(t, models.PageSet{2, 3}, selection.Pages)

	_, _, err = svc.GetOrTranscribe(ctx, Request{RawData: samplePDF, Pages: "2-3"}, nil)
	var credErr *llm.MissingCredentialError
	require.True(t, errors.As(err, &credErr), "got %v", err)
	assert.Equal(t, "OPENAI_API_KEY", credErr.EnvVar)

	_, _, err = svc.GetOrTranscribe(ctx, Request{RawData: samplePDF, Pages: "9"}, nil)
	assert.True(t, pages.IsValidationError(err), "range errors take precedence, got %v", err)

	svc.Unavailable = nil
	_, _, err = svc.GetOrTranscribe(ctx, Request{RawData: samplePDF}, nil)
	assert.ErrorIs(t, err, ErrNoPipeline)
}
