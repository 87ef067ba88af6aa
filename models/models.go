package models

import "time"

type PdfData []byte

// PageSet is an ascending, duplicate-free list of 1-indexed page numbers.
type PageSet []int

// ProgressUpdate is emitted by the transcription pipeline as it works through a document.
// CurrentIndex is the 1-based position within the selected pages (0 before the first page).
type ProgressUpdate struct {
	CurrentIndex int    `json:"current_index"`
	Total        int    `json:"total"`
	Message      string `json:"message"`
}

// SourceInfo contains information about where the PDF came from
type SourceInfo struct {
	Path     string `json:"path,omitempty"`
	URL      string `json:"url,omitempty"`
	ZoteroID string `json:"zotero_id,omitempty"`
}

// String returns a short human-readable label for the source
func (s SourceInfo) String() string {
	switch {
	case s.Path != "":
		return s.Path
	case s.URL != "":
		return s.URL
	case s.ZoteroID != "":
		return "zotero:" + s.ZoteroID
	default:
		return "raw data"
	}
}

// TranscriptInfo describes a finished transcription held by the transcript store
type TranscriptInfo struct {
	ID        string     `json:"transcript_id"`
	Source    SourceInfo `json:"source"`
	Pages     PageSet    `json:"pages"`
	PageCount int        `json:"page_count"`
	CreatedAt time.Time  `json:"created_at"`
	// Fingerprint identifies the input bytes plus page selection, used to reuse earlier results
	Fingerprint string `json:"-"`
	Text        string `json:"-"`
}
