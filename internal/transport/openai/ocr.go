package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/ticket"
)

// noText is what the model is told to answer for images without text.
const noText = "<none>"

const ocrPrompt = "Transcribe all text visible in this image exactly as written, keeping line breaks. " +
	"Do not describe the image and do not translate. If there is no text, answer " + noText + "."

// OCRConfig holds the vision OCR settings.
type OCRConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// OCR implements domain.TextExtractor with a vision chat completion.
type OCR struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOCR creates a vision OCR extractor.
func NewOCR(cfg *OCRConfig) *OCR {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &OCR{
		client:    newClient(cfg.APIKey, cfg.BaseURL),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

// ExtractText implements domain.TextExtractor. An image without text yields "".
func (o *OCR) ExtractText(ctx context.Context, img ticket.Image) (string, error) {
	dataURL := "data:" + img.Format.MIME() + ";base64," + base64.StdEncoding.EncodeToString(img.Content)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		MaxTokens:   o.maxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: ocrPrompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailHigh,
				}},
			},
		}},
	})
	if err != nil {
		return "", parseAPIError("ocr", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty ocr response: %w", ErrUpstream)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == noText {
		return "", nil
	}
	return text, nil
}
