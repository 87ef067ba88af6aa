package pdf

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/Epistemic-Technology/pdf-transcribe/models"
)

// baseDPI is the nominal PDF resolution; a render scale of 1.0 maps to 72 DPI
const baseDPI = 72.0

// Document is an opened PDF that can hand out renderable pages
type Document interface {
	// PageCount returns the total number of pages in the document
	PageCount() int
	// Page returns the page with the given 1-indexed number
	Page(pageNumber int) (Page, error)
	// Close releases the document
	Close() error
}

// Page is a single renderable page of a Document
type Page interface {
	// Render rasterizes the page at scale times the nominal resolution
	Render(scale float64) (image.Image, error)
	// Cleanup releases the page's decoded resources. It is safe to call more than once.
	Cleanup()
}

// Opener opens raw PDF bytes as a Document
type Opener interface {
	Open(data models.PdfData) (Document, error)
}

// FitzOpener opens documents with MuPDF through go-fitz
type FitzOpener struct{}

// NewFitzOpener creates an opener backed by go-fitz
func NewFitzOpener() *FitzOpener {
	return &FitzOpener{}
}

func (FitzOpener) Open(data models.PdfData) (Document, error) {
	if len(data) == 0 {
		return nil, errors.New("no PDF data provided")
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &fitzDocument{doc: doc, pageCount: doc.NumPage()}, nil
}

type fitzDocument struct {
	mu        sync.Mutex
	doc       *fitz.Document
	pageCount int
}

func (d *fitzDocument) PageCount() int {
	return d.pageCount
}

func (d *fitzDocument) Page(pageNumber int) (Page, error) {
	if pageNumber < 1 || pageNumber > d.pageCount {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", pageNumber, d.pageCount)
	}
	return &fitzPage{doc: d, index: pageNumber - 1}, nil
}

func (d *fitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}

func (d *fitzDocument) render(index int, dpi float64) (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil, errors.New("document is closed")
	}
	return d.doc.ImageDPI(index, dpi)
}

type fitzPage struct {
	doc   *fitzDocument
	index int
	img   *image.RGBA
}

func (p *fitzPage) Render(scale float64) (image.Image, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("invalid render scale: %v", scale)
	}
	img, err := p.doc.render(p.index, baseDPI*scale)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", p.index+1, err)
	}
	p.img = img
	return img, nil
}

func (p *fitzPage) Cleanup() {
	p.img = nil
}
