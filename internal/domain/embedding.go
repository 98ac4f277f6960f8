package domain

import (
	"context"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/ticket"
)

// Embedder is the text vectorization contract (D_text).
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// MultimodalEmbedder maps images and text into the shared D_mm space.
type MultimodalEmbedder interface {
	EmbedImage(ctx context.Context, img ticket.Image) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// TextExtractor recognizes text on an image. An empty result is valid.
type TextExtractor interface {
	ExtractText(ctx context.Context, img ticket.Image) (string, error)
}

// Translator translates text. source may be AutoDetect.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// AutoDetect asks the translator to detect the source language.
const AutoDetect = "auto"

// HealthChecker verifies collaborator availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
