package collaborator

import (
	"context"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/bucket"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/point"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/ticket"
)

// --- Mocks ---

type mockEmbedder struct {
	embedFn  func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	healthFn func(ctx context.Context) error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return m.embedFn(ctx, text)
}

func (m *mockEmbedder) HealthCheck(ctx context.Context) error {
	if m.healthFn != nil {
		return m.healthFn(ctx)
	}
	return nil
}

type mockMultimodal struct {
	imageFn func(ctx context.Context, img ticket.Image) ([]float32, error)
	textFn  func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockMultimodal) EmbedImage(ctx context.Context, img ticket.Image) ([]float32, error) {
	return m.imageFn(ctx, img)
}

func (m *mockMultimodal) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return m.textFn(ctx, text)
}

type mockExtractor struct {
	extractFn func(ctx context.Context, img ticket.Image) (string, error)
}

func (m *mockExtractor) ExtractText(ctx context.Context, img ticket.Image) (string, error) {
	return m.extractFn(ctx, img)
}

type mockTranslator struct {
	translateFn func(ctx context.Context, text, source, target string) (string, error)
}

func (m *mockTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	return m.translateFn(ctx, text, source, target)
}

type mockBuckets struct {
	createFn func(ctx context.Context, id string) error
	dropFn   func(ctx context.Context, id string) error
	existsFn func(ctx context.Context, id string) (bool, error)
	schemaFn func(ctx context.Context, id string) (bucket.Schema, error)
}

func (m *mockBuckets) Create(ctx context.Context, id string) error { return m.createFn(ctx, id) }
func (m *mockBuckets) Drop(ctx context.Context, id string) error   { return m.dropFn(ctx, id) }

func (m *mockBuckets) Exists(ctx context.Context, id string) (bool, error) {
	return m.existsFn(ctx, id)
}

func (m *mockBuckets) Schema(ctx context.Context, id string) (bucket.Schema, error) {
	return m.schemaFn(ctx, id)
}

type mockPoints struct {
	upsertFn func(ctx context.Context, bucketID, ticketID string, points []point.Point) error
	removeFn func(ctx context.Context, bucketID, ticketID string) (int, error)
	pruneFn  func(ctx context.Context, bucketID, ticketID string, keep []string) (int, error)
	searchFn func(ctx context.Context, bucketID string, slot bucket.Slot, vector []float32, limit int) ([]point.Hit, error)
}

func (m *mockPoints) Upsert(ctx context.Context, bucketID, ticketID string, points []point.Point) error {
	return m.upsertFn(ctx, bucketID, ticketID, points)
}

func (m *mockPoints) RemoveTicket(ctx context.Context, bucketID, ticketID string) (int, error) {
	return m.removeFn(ctx, bucketID, ticketID)
}

func (m *mockPoints) Prune(ctx context.Context, bucketID, ticketID string, keep []string) (int, error) {
	return m.pruneFn(ctx, bucketID, ticketID, keep)
}

func (m *mockPoints) Search(
	ctx context.Context, bucketID string, slot bucket.Slot, vector []float32, limit int,
) ([]point.Hit, error) {
	return m.searchFn(ctx, bucketID, slot, vector, limit)
}
