package collaborator

import (
	"context"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/ticket"
)

// Embedder guards a text embedder.
type Embedder struct {
	inner domain.Embedder
	guard *Guard
}

// NewEmbedder wraps inner with g.
func NewEmbedder(inner domain.Embedder, g *Guard) *Embedder {
	return &Embedder{inner: inner, guard: g}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return call(ctx, e.guard, "embed", func(ctx context.Context) (domain.EmbeddingResult, error) {
		return e.inner.Embed(ctx, text)
	})
}

// HealthCheck delegates to the wrapped embedder when it supports health checks.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	return healthOf(ctx, e.inner)
}

// MultimodalEmbedder guards the shared image/text space embedder.
type MultimodalEmbedder struct {
	inner domain.MultimodalEmbedder
	guard *Guard
}

// NewMultimodalEmbedder wraps inner with g.
func NewMultimodalEmbedder(inner domain.MultimodalEmbedder, g *Guard) *MultimodalEmbedder {
	return &MultimodalEmbedder{inner: inner, guard: g}
}

// EmbedImage implements domain.MultimodalEmbedder.
func (m *MultimodalEmbedder) EmbedImage(ctx context.Context, img ticket.Image) ([]float32, error) {
	return call(ctx, m.guard, "embed_image", func(ctx context.Context) ([]float32, error) {
		return m.inner.EmbedImage(ctx, img)
	})
}

// EmbedText implements domain.MultimodalEmbedder.
func (m *MultimodalEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return call(ctx, m.guard, "embed_text", func(ctx context.Context) ([]float32, error) {
		return m.inner.EmbedText(ctx, text)
	})
}

// HealthCheck delegates to the wrapped embedder when it supports health checks.
func (m *MultimodalEmbedder) HealthCheck(ctx context.Context) error {
	return healthOf(ctx, m.inner)
}

// TextExtractor guards OCR.
type TextExtractor struct {
	inner domain.TextExtractor
	guard *Guard
}

// NewTextExtractor wraps inner with g.
func NewTextExtractor(inner domain.TextExtractor, g *Guard) *TextExtractor {
	return &TextExtractor{inner: inner, guard: g}
}

// ExtractText implements domain.TextExtractor.
func (x *TextExtractor) ExtractText(ctx context.Context, img ticket.Image) (string, error) {
	return call(ctx, x.guard, "extract_text", func(ctx context.Context) (string, error) {
		return x.inner.ExtractText(ctx, img)
	})
}

// Translator guards the translator.
type Translator struct {
	inner domain.Translator
	guard *Guard
}

// NewTranslator wraps inner with g.
func NewTranslator(inner domain.Translator, g *Guard) *Translator {
	return &Translator{inner: inner, guard: g}
}

// Translate implements domain.Translator.
func (t *Translator) Translate(ctx context.Context, text, source, target string) (string, error) {
	return call(ctx, t.guard, "translate", func(ctx context.Context) (string, error) {
		return t.inner.Translate(ctx, text, source, target)
	})
}

func healthOf(ctx context.Context, v any) error {
	if hc, ok := v.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
