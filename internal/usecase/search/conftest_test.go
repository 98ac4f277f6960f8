package search

import (
	"context"
	"sync"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/point"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/ticket"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// --- Mocks ---

type mockBuckets struct {
	exists bool
	err    error
}

func (m *mockBuckets) Exists(_ context.Context, _ string) (bool, error) { return m.exists, m.err }

// searchCall records one Search invocation.
type searchCall struct {
	slot   bucket.Slot
	vector []float32
	limit  int
}

type mockSearcher struct {
	mu       sync.Mutex
	calls    []searchCall
	searchFn func(ctx context.Context, slot bucket.Slot, vector []float32, limit int) ([]point.Hit, error)
}

func (m *mockSearcher) Search(
	ctx context.Context, _ string, slot bucket.Slot, vector []float32, limit int,
) ([]point.Hit, error) {
	m.mu.Lock()
	m.calls = append(m.calls, searchCall{slot: slot, vector: vector, limit: limit})
	m.mu.Unlock()
	if m.searchFn == nil {
		return nil, nil
	}
	return m.searchFn(ctx, slot, vector, limit)
}

func (m *mockSearcher) slots() map[bucket.Slot]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[bucket.Slot]int{}
	for _, c := range m.calls {
		out[c.slot]++
	}
	return out
}

// Vector markers: the first component tells the searcher which query a vector belongs to.
const (
	markText   = 1
	markMMText = 2
	markImage  = 10 // + image index
)

type mockCollaborators struct {
	mu             sync.Mutex
	translated     []string
	embedded       []string
	translateErr   error
	embedErr       error
	imageErr       error
	translateReply string
}

func (m *mockCollaborators) Translate(_ context.Context, text, source, target string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.translated = append(m.translated, source+">"+target+":"+text)
	if m.translateErr != nil {
		return "", m.translateErr
	}
	if m.translateReply != "" {
		return m.translateReply, nil
	}
	return text, nil
}

func (m *mockCollaborators) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedded = append(m.embedded, text)
	if m.embedErr != nil {
		return domain.EmbeddingResult{}, m.embedErr
	}
	return domain.EmbeddingResult{Embedding: []float32{markText}}, nil
}

func (m *mockCollaborators) EmbedText(_ context.Context, _ string) ([]float32, error) {
	return []float32{markMMText}, nil
}

func (m *mockCollaborators) EmbedImage(_ context.Context, img ticket.Image) ([]float32, error) {
	if m.imageErr != nil {
		return nil, m.imageErr
	}
	// the test images carry their index in the last byte
	return []float32{float32(markImage + int(img.Content[len(img.Content)-1]))}, nil
}

func (m *mockCollaborators) set() Collaborators {
	return Collaborators{Text: m, Multimodal: m, Translator: m}
}

// queryImage returns a valid PNG whose last byte is idx.
func queryImage(idx byte) ticket.Image {
	content := append(append([]byte{}, pngBytes...), idx)
	return ticket.Image{Content: content, Format: ticket.FormatPNG}
}
