package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Epistemic-Technology/pdf-transcribe/models"
)

func loadSamplePDFs(t *testing.T) []string {
	samplesDir := filepath.Join("..", "samples")
	files, err := filepath.Glob(filepath.Join(samplesDir, "*.pdf"))
	if err != nil {
		t.Fatalf("Failed to list sample PDFs: %v", err)
	}
	if len(files) == 0 {
		t.Skip("No sample PDFs found in samples directory")
	}
	return files
}

func TestFitzOpener_RenderSamples(t *testing.T) {
	for _, filePath := range loadSamplePDFs(t) {
		t.Run(filepath.Base(filePath), func(t *testing.T) {
			pdfBytes, err := os.ReadFile(filePath)
			if err != nil {
				t.Fatalf("Failed to read PDF file %s: %v", filePath, err)
			}

			expectedPageCount, err := api.PageCount(bytes.NewReader(pdfBytes), nil)
			if err != nil {
				t.Fatalf("Failed to get page count: %v", err)
			}

			count, err := CountPages(pdfBytes)
			if err != nil {
				t.Fatalf("CountPages failed: %v", err)
			}
			if count != expectedPageCount {
				t.Errorf("CountPages = %d, want %d", count, expectedPageCount)
			}

			doc, err := NewFitzOpener().Open(pdfBytes)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer doc.Close()

			if doc.PageCount() != expectedPageCount {
				t.Errorf("Expected %d pages, got %d", expectedPageCount, doc.PageCount())
			}

			page, err := doc.Page(1)
			if err != nil {
				t.Fatalf("Page(1) failed: %v", err)
			}
			defer page.Cleanup()

			small, err := page.Render(1.0)
			if err != nil {
				t.Fatalf("Render(1.0) failed: %v", err)
			}
			large, err := page.Render(2.0)
			if err != nil {
				t.Fatalf("Render(2.0) failed: %v", err)
			}
			if large.Bounds().Dx() <= small.Bounds().Dx() {
				t.Errorf("Expected scale 2.0 to be wider than 1.0: %d <= %d", large.Bounds().Dx(), small.Bounds().Dx())
			}

			if _, err := doc.Page(expectedPageCount + 1); err == nil {
				t.Error("Expected error for page beyond the end of the document")
			}
		})
	}
}

// buildTestPDF writes a minimal PDF whose pages are 200x100 points, each with a filled rectangle
func buildTestPDF(pageCount int) []byte {
	var buf bytes.Buffer
	var offsets []int
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	object("<< /Type /Catalog /Pages 2 0 R >>")
	kids := ""
	for i := 0; i < pageCount; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pageCount))
	for i := 0; i < pageCount; i++ {
		object(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] /Resources << >> /Contents %d 0 R >>", 4+2*i))
		content := fmt.Sprintf("0 0 1 rg %d 10 50 50 re f", 10+20*i)
		object(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestFitzOpener_RenderGenerated(t *testing.T) {
	data := models.PdfData(buildTestPDF(2))

	expectedPageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("pdfcpu could not read the generated PDF: %v", err)
	}
	if expectedPageCount != 2 {
		t.Fatalf("Expected 2 pages in the generated PDF, got %d", expectedPageCount)
	}
	count, err := CountPages(data)
	if err != nil {
		t.Fatalf("CountPages failed: %v", err)
	}
	if count != expectedPageCount {
		t.Errorf("CountPages = %d, want %d", count, expectedPageCount)
	}

	doc, err := NewFitzOpener().Open(data)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer doc.Close()
	if doc.PageCount() != count {
		t.Errorf("fitz reports %d pages, pdfcpu %d", doc.PageCount(), count)
	}

	for pageNumber := 1; pageNumber <= count; pageNumber++ {
		page, err := doc.Page(pageNumber)
		if err != nil {
			t.Fatalf("Page(%d) failed: %v", pageNumber, err)
		}

		small, err := page.Render(1.0)
		if err != nil {
			t.Fatalf("Render(1.0) failed: %v", err)
		}
		if w := small.Bounds().Dx(); w < 199 || w > 201 {
			t.Errorf("Expected a 200px wide render at 72 DPI, got %d", w)
		}
		large, err := page.Render(2.0)
		if err != nil {
			t.Fatalf("Render(2.0) failed: %v", err)
		}
		if large.Bounds().Dx() <= small.Bounds().Dx() {
			t.Errorf("Expected scale 2.0 to be wider than 1.0: %d <= %d", large.Bounds().Dx(), small.Bounds().Dx())
		}

		encoded, err := EncodeJPEG(large, 85)
		if err != nil {
			t.Fatalf("EncodeJPEG failed: %v", err)
		}
		decoded, err := jpeg.Decode(bytes.NewReader(encoded))
		if err != nil {
			t.Fatalf("Encoded page is not a valid JPEG: %v", err)
		}
		if decoded.Bounds().Size() != large.Bounds().Size() {
			t.Errorf("JPEG size %v, want %v", decoded.Bounds().Size(), large.Bounds().Size())
		}

		page.Cleanup()
		if fp, ok := page.(*fitzPage); !ok || fp.img != nil {
			t.Error("Cleanup should drop the rendered image")
		}
		page.Cleanup()
	}

	if _, err := doc.Page(count + 1); err == nil {
		t.Error("Expected error for page beyond the end of the document")
	}
	if err := doc.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := doc.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestFitzOpener_InvalidInput(t *testing.T) {
	if _, err := NewFitzOpener().Open(nil); err == nil {
		t.Error("Expected error for empty PDF data, got nil")
	}
	if _, err := NewFitzOpener().Open(models.PdfData("This is not a PDF")); err == nil {
		t.Error("Expected error for invalid PDF data, got nil")
	}
}

func TestCountPages_InvalidInput(t *testing.T) {
	if _, err := CountPages(models.PdfData{}); err == nil {
		t.Error("Expected error for empty PDF data, got nil")
	}
	if _, err := CountPages(models.PdfData("This is not a PDF")); err == nil {
		t.Error("Expected error for invalid PDF data, got nil")
	}
}

func TestCheckInput(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		maxBytes int64
		wantErr  error
	}{
		{"pdf header", []byte("%PDF-1.7\n..."), 0, nil},
		{"leading whitespace", []byte("\n%PDF-1.4"), 0, nil},
		{"not a pdf", []byte("<html></html>"), 0, ErrNotPDF},
		{"empty", []byte{}, 0, ErrNotPDF},
		{"too large", []byte("%PDF-1.4 0123456789"), 10, ErrFileTooLarge},
		{"at limit", []byte("%PDF-1.4"), 8, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckInput(tt.data, tt.maxBytes)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEncodeJPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: 200, B: uint8(y * 12), A: 255})
		}
	}

	data, err := EncodeJPEG(img, DefaultJPEGQuality)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("bounds changed: %v != %v", decoded.Bounds(), img.Bounds())
	}

	low, err := EncodeJPEG(img, 5)
	if err != nil {
		t.Fatalf("EncodeJPEG low quality failed: %v", err)
	}
	if len(low) >= len(data) {
		t.Errorf("expected lower quality to produce smaller output: %d >= %d", len(low), len(data))
	}

	if _, err := EncodeJPEG(nil, 90); err == nil {
		t.Error("expected error for nil image")
	}
}

func TestFetcher_GetData(t *testing.T) {
	pdfBody := []byte("%PDF-1.4\nfake body")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/doc.pdf":
			w.Write(pdfBody)
		case "/page.html":
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	localPath := filepath.Join(dir, "local.pdf")
	if err := os.WriteFile(localPath, pdfBody, 0644); err != nil {
		t.Fatal(err)
	}

	fetcher := NewFetcher(ZoteroCredentials{}, 1024)
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		data, err := fetcher.GetData(ctx, models.SourceInfo{Path: localPath})
		if err != nil {
			t.Fatalf("GetData failed: %v", err)
		}
		if !bytes.Equal(data, pdfBody) {
			t.Errorf("unexpected data %q", data)
		}
	})

	t.Run("url", func(t *testing.T) {
		data, err := fetcher.GetData(ctx, models.SourceInfo{URL: srv.URL + "/doc.pdf"})
		if err != nil {
			t.Fatalf("GetData failed: %v", err)
		}
		if !bytes.Equal(data, pdfBody) {
			t.Errorf("unexpected data %q", data)
		}
	})

	t.Run("url not found", func(t *testing.T) {
		if _, err := fetcher.GetData(ctx, models.SourceInfo{URL: srv.URL + "/missing.pdf"}); err == nil {
			t.Error("expected error for 404")
		}
	})

	t.Run("url not a pdf", func(t *testing.T) {
		_, err := fetcher.GetData(ctx, models.SourceInfo{URL: srv.URL + "/page.html"})
		if !errors.Is(err, ErrNotPDF) {
			t.Errorf("expected ErrNotPDF, got %v", err)
		}
	})

	t.Run("file too large", func(t *testing.T) {
		small := NewFetcher(ZoteroCredentials{}, 4)
		_, err := small.GetData(ctx, models.SourceInfo{Path: localPath})
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("url too large", func(t *testing.T) {
		small := NewFetcher(ZoteroCredentials{}, 4)
		_, err := small.GetData(ctx, models.SourceInfo{URL: srv.URL + "/doc.pdf"})
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("zotero without credentials", func(t *testing.T) {
		if _, err := fetcher.GetData(ctx, models.SourceInfo{ZoteroID: "ABCD1234"}); err == nil {
			t.Error("expected error without Zotero credentials")
		}
	})

	t.Run("no source", func(t *testing.T) {
		if _, err := fetcher.GetData(ctx, models.SourceInfo{}); err == nil {
			t.Error("expected error for empty source")
		}
	})
}
