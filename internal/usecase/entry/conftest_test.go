package entry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/point"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/ticket"
)

const (
	testTextDim = 4
	testMMDim   = 6
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	gifBytes  = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00")
)

// --- Mocks ---

// memStore is an in-memory bucket and point store.
type memStore struct {
	mu        sync.Mutex
	buckets   map[string]map[string]point.Point
	upserts   int
	upsertErr error
	pruneErr  error
}

func newMemStore(buckets ...string) *memStore {
	m := &memStore{buckets: map[string]map[string]point.Point{}}
	for _, b := range buckets {
		m.buckets[b] = map[string]point.Point{}
	}
	return m
}

func (m *memStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.buckets[id]
	return ok, nil
}

func (m *memStore) Schema(_ context.Context, id string) (bucket.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[id]; !ok {
		return bucket.Schema{}, domain.ErrNotFound
	}
	return bucket.NewSchema(testTextDim, testMMDim)
}

func (m *memStore) Upsert(_ context.Context, bucketID, _ string, points []point.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	for _, p := range points {
		m.buckets[bucketID][p.ID] = p
	}
	return nil
}

func (m *memStore) RemoveTicket(_ context.Context, bucketID, ticketID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, p := range m.buckets[bucketID] {
		if p.TicketID == ticketID {
			delete(m.buckets[bucketID], id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) Prune(_ context.Context, bucketID, ticketID string, keep []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pruneErr != nil {
		return 0, m.pruneErr
	}
	kept := make(map[string]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}
	n := 0
	for id, p := range m.buckets[bucketID] {
		if p.TicketID == ticketID && !kept[id] {
			delete(m.buckets[bucketID], id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) points(bucketID string) map[string]point.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]point.Point, len(m.buckets[bucketID]))
	for k, v := range m.buckets[bucketID] {
		out[k] = v
	}
	return out
}

// fakeCollaborators returns fixed-size vectors and counts calls.
type fakeCollaborators struct {
	calls   atomic.Int32
	dim     int // text vector size override, 0 = testTextDim
	ocrText string
	textErr error
	imgErr  error
	ocrErr  error
}

// Embed rejects blank input the way OpenAI-compatible APIs do.
func (f *fakeCollaborators) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	f.calls.Add(1)
	if strings.TrimSpace(text) == "" {
		return domain.EmbeddingResult{}, errors.New("input must be a non-empty string")
	}
	if f.textErr != nil {
		return domain.EmbeddingResult{}, f.textErr
	}
	dim := testTextDim
	if f.dim > 0 {
		dim = f.dim
	}
	return domain.EmbeddingResult{Embedding: make([]float32, dim)}, nil
}

func (f *fakeCollaborators) EmbedImage(_ context.Context, _ ticket.Image) ([]float32, error) {
	f.calls.Add(1)
	if f.imgErr != nil {
		return nil, f.imgErr
	}
	return make([]float32, testMMDim), nil
}

func (f *fakeCollaborators) EmbedText(_ context.Context, _ string) ([]float32, error) {
	f.calls.Add(1)
	return make([]float32, testMMDim), nil
}

func (f *fakeCollaborators) ExtractText(_ context.Context, _ ticket.Image) (string, error) {
	f.calls.Add(1)
	return f.ocrText, f.ocrErr
}

func (f *fakeCollaborators) set() Collaborators {
	return Collaborators{Text: f, Multimodal: f, OCR: f}
}
