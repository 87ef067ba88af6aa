package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Epistemic-Technology/pdf-transcribe/internal/pages"
	"github.com/Epistemic-Technology/pdf-transcribe/models"
)

// MemoryStore keeps transcripts for the lifetime of the process
type MemoryStore struct {
	mu            sync.RWMutex
	transcripts   map[string]*models.TranscriptInfo
	byFingerprint map[string]string
	now           func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transcripts:   make(map[string]*models.TranscriptInfo),
		byFingerprint: make(map[string]string),
		now:           time.Now,
	}
}

func (s *MemoryStore) StoreTranscript(ctx context.Context, info *models.TranscriptInfo) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stored := *info
	stored.Pages = slices.Clone(info.Pages)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[stored.ID] = &stored
	if stored.Fingerprint != "" {
		s.byFingerprint[stored.Fingerprint] = stored.ID
	}
	return stored.ID, nil
}

func (s *MemoryStore) GetTranscript(ctx context.Context, id string) (*models.TranscriptInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.transcripts[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *info
	out.Pages = slices.Clone(info.Pages)
	return &out, nil
}

func (s *MemoryStore) FindByFingerprint(ctx context.Context, fingerprint string) (*models.TranscriptInfo, error) {
	s.mu.RLock()
	id, ok := s.byFingerprint[fingerprint]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetTranscript(ctx, id)
}

func (s *MemoryStore) ListTranscripts(ctx context.Context) ([]models.TranscriptInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.TranscriptInfo, 0, len(s.transcripts))
	for _, info := range s.transcripts {
		list = append(list, *info)
	}
	slices.SortFunc(list, func(a, b models.TranscriptInfo) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return list, nil
}

func (s *MemoryStore) DeleteTranscript(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.transcripts[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.transcripts, id)
	if s.byFingerprint[info.Fingerprint] == id {
		delete(s.byFingerprint, info.Fingerprint)
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.transcripts)
	clear(s.byFingerprint)
	return nil
}

// Fingerprint hashes the PDF bytes together with the selected pages
func Fingerprint(data models.PdfData, selected models.PageSet) string {
	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(pages.FormatPageSet(selected)))
	return hex.EncodeToString(h.Sum(nil))
}
