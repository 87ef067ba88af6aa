package operations

import (
	"context"
	"errors"
	"fmt"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/logger"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/pages"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/pdf"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/storage"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/transcribe"
	"github.com/Epistemic-Technology/pdf-transcribe/models"
)

// Service ties source fetching, page selection, the pipeline and the transcript store together.
// It is shared by the CLI and the MCP tools.
type Service struct {
	Fetcher  *pdf.Fetcher
	Pipeline *transcribe.Pipeline
	Store    storage.Store
	Logger   logger.Logger
	// CountPages defaults to pdf.CountPages
	CountPages func(models.PdfData) (int, error)
	// Unavailable is why Pipeline is nil, such as a missing provider credential
	Unavailable error
}

// ErrNoPipeline is returned by GetOrTranscribe when the service has no pipeline and no Unavailable reason
var ErrNoPipeline = errors.New("transcription is not configured")

// Request describes a PDF and the page range expression to apply to it
type Request struct {
	Source models.SourceInfo
	// RawData is used instead of Source when non-empty
	RawData []byte
	// Pages is a range expression such as "1-5, 8". Empty selects every page.
	Pages string
}

// PageSelection is the outcome of validating a range expression against a document
type PageSelection struct {
	PageCount int
	Pages     models.PageSet
}

// LoadPDF returns the request's PDF bytes, fetching them from the source when no raw data was given
func (s *Service) LoadPDF(ctx context.Context, req Request) (models.PdfData, error) {
	if len(req.RawData) > 0 {
		data := models.PdfData(req.RawData)
		if err := pdf.CheckInput(data, s.Fetcher.MaxBytes); err != nil {
			return nil, err
		}
		return data, nil
	}

	data, err := s.Fetcher.GetData(ctx, req.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch PDF data: %w", err)
	}
	return data, nil
}

// SelectPages counts the document's pages and parses expr against that count
func (s *Service) SelectPages(data models.PdfData, expr string) (*PageSelection, error) {
	count := s.CountPages
	if count == nil {
		count = pdf.CountPages
	}
	pageCount, err := count(data)
	if err != nil {
		return nil, err
	}

	if expr == "" {
		return &PageSelection{PageCount: pageCount, Pages: pages.AllPages(pageCount)}, nil
	}
	selected, err := pages.ParsePageRanges(expr, pageCount)
	if err != nil {
		return nil, err
	}
	return &PageSelection{PageCount: pageCount, Pages: selected}, nil
}

// GetOrTranscribe returns a stored transcript for the same PDF and pages if one exists,
// or runs the pipeline and stores the result. The boolean reports whether a stored result was reused.
func (s *Service) GetOrTranscribe(ctx context.Context, req Request, progress transcribe.ProgressReporter) (*models.TranscriptInfo, bool, error) {
	log := s.log().With("source", req.Source.String())

	data, err := s.LoadPDF(ctx, req)
	if err != nil {
		return nil, false, err
	}

	selection, err := s.SelectPages(data, req.Pages)
	if err != nil {
		return nil, false, err
	}

	fingerprint := storage.Fingerprint(data, selection.Pages)
	existing, err := s.Store.FindByFingerprint(ctx, fingerprint)
	if err == nil {
		log.Info("Reusing transcript %s", existing.ID)
		return existing, true, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to check for an existing transcript: %w", err)
	}

	if s.Pipeline == nil {
		if s.Unavailable != nil {
			return nil, false, s.Unavailable
		}
		return nil, false, ErrNoPipeline
	}

	log.Info("Transcribing %d of %d pages", len(selection.Pages), selection.PageCount)
	text, err := s.Pipeline.TranscribeFile(ctx, data, progress, transcribe.Options{Pages: selection.Pages})
	if err != nil {
		log.Error("Transcription failed: %v", err)
		return nil, false, err
	}

	info := &models.TranscriptInfo{
		Source:      req.Source,
		Pages:       selection.Pages,
		PageCount:   selection.PageCount,
		Fingerprint: fingerprint,
		Text:        text,
	}
	id, err := s.Store.StoreTranscript(ctx, info)
	if err != nil {
		return nil, false, fmt.Errorf("failed to store transcript: %w", err)
	}

	stored, err := s.Store.GetTranscript(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to retrieve stored transcript: %w", err)
	}
	log.Info("Stored transcript %s", id)
	return stored, false, nil
}

func (s *Service) log() logger.Logger {
	if s.Logger == nil {
		return logger.NewNoOpLogger()
	}
	return s.Logger
}
