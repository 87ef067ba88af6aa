// Package transcribe runs selected PDF pages through rasterization and a vision model, one page at a time.
package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/llm"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/logger"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/pages"
	"github.com/Epistemic-Technology/pdf-transcribe/internal/pdf"
	"github.com/Epistemic-Technology/pdf-transcribe/models"
)

// NoPagesSelected is returned in place of a transcript when the page list is empty
const NoPagesSelected = "No pages were selected for transcription."

// DefaultScale renders pages at twice the nominal PDF resolution
const DefaultScale = 2.0

// Pipeline transcribes pages sequentially. A Pipeline holds no per-run state and may be shared.
type Pipeline struct {
	Opener      pdf.Opener
	Transcriber llm.Transcriber
	Scale       float64
	JPEGQuality int
	Logger      logger.Logger
}

// Options controls a TranscribeFile run
type Options struct {
	// Pages to transcribe in order. Nil selects every page; an empty non-nil set selects none.
	Pages models.PageSet
}

// NewPipeline creates a pipeline with the default render scale and JPEG quality
func NewPipeline(opener pdf.Opener, transcriber llm.Transcriber, log logger.Logger) *Pipeline {
	return &Pipeline{
		Opener:      opener,
		Transcriber: transcriber,
		Scale:       DefaultScale,
		JPEGQuality: pdf.DefaultJPEGQuality,
		Logger:      log,
	}
}

// TranscribeFile opens data, transcribes the selected pages and closes the document
func (p *Pipeline) TranscribeFile(ctx context.Context, data models.PdfData, progress ProgressReporter, opts Options) (string, error) {
	if opts.Pages != nil && len(opts.Pages) == 0 {
		return NoPagesSelected, nil
	}
	if progress == nil {
		progress = Discard
	}

	progress.Report(models.ProgressUpdate{Message: "Reading PDF file..."})

	doc, err := p.Opener.Open(data)
	if err != nil {
		return "", &PipelineError{Stage: StageOpenDocument, Err: err}
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			p.log().Warn("Failed to close PDF document: %v", cerr)
		}
	}()

	selected := opts.Pages
	if selected == nil {
		selected = pages.AllPages(doc.PageCount())
	}

	return p.Transcribe(ctx, doc, selected, progress)
}

// Transcribe processes pageNumbers in the order given and joins the non-empty results,
// each under a "--- Page N ---" label. The first failure aborts the run.
func (p *Pipeline) Transcribe(ctx context.Context, doc pdf.Document, pageNumbers models.PageSet, progress ProgressReporter) (string, error) {
	if len(pageNumbers) == 0 {
		return NoPagesSelected, nil
	}
	if progress == nil {
		progress = Discard
	}

	total := len(pageNumbers)
	progress.Report(models.ProgressUpdate{
		CurrentIndex: 0,
		Total:        total,
		Message:      fmt.Sprintf("Found %d pages to process.", total),
	})

	var result strings.Builder
	for i, pageNumber := range pageNumbers {
		if err := ctx.Err(); err != nil {
			return "", &PipelineError{Stage: StageCancelled, Page: pageNumber, Err: err}
		}

		text, err := p.transcribePage(ctx, doc, pageNumber, i+1, total, progress)
		if err != nil {
			return "", err
		}

		if strings.TrimSpace(text) == "" {
			p.log().Debug("Page %d contained no text", pageNumber)
			continue
		}
		fmt.Fprintf(&result, "--- Page %d ---\n\n%s\n\n", pageNumber, text)
	}

	return strings.TrimSpace(result.String()), nil
}

func (p *Pipeline) transcribePage(ctx context.Context, doc pdf.Document, pageNumber, index, total int, progress ProgressReporter) (string, error) {
	log := p.log().With("page", pageNumber)

	progress.Report(models.ProgressUpdate{
		CurrentIndex: index,
		Total:        total,
		Message:      fmt.Sprintf("Processing page %d of %d...", pageNumber, doc.PageCount()),
	})

	page, err := doc.Page(pageNumber)
	if err != nil {
		return "", &PipelineError{Stage: StageLoadPage, Page: pageNumber, Err: err}
	}
	defer page.Cleanup()

	img, err := page.Render(p.scale())
	if err != nil {
		return "", &PipelineError{Stage: StageRender, Page: pageNumber, Err: err}
	}

	data, err := pdf.EncodeJPEG(img, p.quality())
	if err != nil {
		return "", &PipelineError{Stage: StageEncode, Page: pageNumber, Err: err}
	}
	log.Debug("Rendered page as %d byte JPEG", len(data))

	progress.Report(models.ProgressUpdate{
		CurrentIndex: index,
		Total:        total,
		Message:      fmt.Sprintf("Analyzing image from page %d...", pageNumber),
	})

	text, err := p.Transcriber.Transcribe(ctx, llm.Image{Data: data, MIMEType: pdf.JPEGMIMEType})
	if err != nil {
		return "", &PipelineError{Stage: StageTranscribe, Page: pageNumber, Err: err}
	}

	return text, nil
}

func (p *Pipeline) scale() float64 {
	if p.Scale <= 0 {
		return DefaultScale
	}
	return p.Scale
}

func (p *Pipeline) quality() int {
	if p.JPEGQuality <= 0 {
		return pdf.DefaultJPEGQuality
	}
	return p.JPEGQuality
}

func (p *Pipeline) log() logger.Logger {
	if p.Logger == nil {
		return logger.NewNoOpLogger()
	}
	return p.Logger
}
