package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Epistemic-Technology/pdf-transcribe/models"
)

var (
	ErrNotPDF       = errors.New("invalid file type, expected a PDF file")
	ErrFileTooLarge = errors.New("file is too large")
)

// CheckInput rejects data that is not a PDF or is larger than maxBytes (0 disables the size check)
func CheckInput(data models.PdfData, maxBytes int64) error {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\n\r "), []byte("%PDF")) {
		return ErrNotPDF
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, len(data), maxBytes)
	}
	return nil
}

// CountPages returns the number of pages in the PDF without rendering anything
func CountPages(data models.PdfData) (int, error) {
	if len(data) == 0 {
		return 0, errors.New("no PDF data provided")
	}
	conf := model.NewDefaultConfiguration()
	count, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("could not read the PDF file to determine the number of pages: %w", err)
	}
	return count, nil
}
