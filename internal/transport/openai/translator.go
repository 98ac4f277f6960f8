package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain"
)

const translatePrompt = "You are a translation engine. Translate the user's message into the language " +
	"with ISO 639-1 code %q. %s Reply with the translation only: no quotes, no notes, no transliteration. " +
	"If the message is already in the target language, return it unchanged."

// TranslatorConfig holds the chat-completion translator settings.
type TranslatorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// Translator implements domain.Translator with a chat completion.
type Translator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewTranslator creates a chat-completion translator.
func NewTranslator(cfg *TranslatorConfig) *Translator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{
		client: newClient(cfg.APIKey, cfg.BaseURL),
		model:  cfg.Model,
		logger: logger,
	}
}

// Translate implements domain.Translator. source may be domain.AutoDetect.
func (t *Translator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if source != domain.AutoDetect && strings.EqualFold(source, target) {
		return text, nil
	}

	hint := "Detect the source language yourself."
	if source != domain.AutoDetect && source != "" {
		hint = fmt.Sprintf("The source language is %q.", source)
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(translatePrompt, target, hint)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", parseAPIError("translation", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty translation response: %w", ErrUpstream)
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		t.logger.Warn("Translator returned empty text, keeping original", zap.String("target", target))
		return text, nil
	}
	return out, nil
}
