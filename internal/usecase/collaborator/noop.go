package collaborator

import (
	"context"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/ticket"
)

// PassthroughTranslator returns the text unchanged. Used when translation is disabled.
type PassthroughTranslator struct{}

// Translate implements domain.Translator.
func (PassthroughTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

// NoText never recognizes anything. Used when OCR is disabled, so image points carry no ocr_text.
type NoText struct{}

// ExtractText implements domain.TextExtractor.
func (NoText) ExtractText(context.Context, ticket.Image) (string, error) {
	return "", nil
}
