// Package openai holds the chat-completion adapters for LLM-assisted
// correction of auto-resolvable validation issues.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/application/port"
	"github.com/payables-ai/invoice-triage/internal/domain/document"
	"github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// FieldPatcher implements port.FieldPatcher using OpenAI. It proposes
// header-field corrections for auto-resolvable issues; it never touches
// line items and never mutates the document itself.
type FieldPatcher struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewFieldPatcher creates a new OpenAI field patcher
func NewFieldPatcher(apiKey, model string, temperature float32, logger *zap.Logger) *FieldPatcher {
	return &FieldPatcher{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

type patchResponse struct {
	Patches []port.FieldPatch `json:"patches"`
}

// ProposePatches asks the model for corrections to the fields flagged by
// auto-resolvable issues. Patches for fields that were not flagged are
// discarded.
func (p *FieldPatcher) ProposePatches(ctx context.Context, doc *document.DocumentData, issues []validation.Issue) ([]port.FieldPatch, error) {
	flagged := flaggedFields(issues)
	if len(flagged) == 0 {
		return nil, nil
	}

	prompt, err := buildPatchPrompt(doc, issues)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: p.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a data-quality assistant for accounts payable. Propose corrections for invoice header fields flagged by validation. Only correct obvious transcription faults such as formatting or stray characters. Never invent values that are not derivable from the given data. Always respond with valid JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		p.logger.Error("OpenAI API call failed", zap.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content

	var parsed patchResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		p.logger.Error("Failed to parse patch response",
			zap.Error(err),
			zap.String("content", content))
		return nil, fmt.Errorf("failed to parse patch response: %w", err)
	}

	var patches []port.FieldPatch
	for _, patch := range parsed.Patches {
		if !flagged[patch.Field] {
			p.logger.Warn("Discarding patch for unflagged field",
				zap.String("field", patch.Field))
			continue
		}
		patches = append(patches, patch)
	}

	p.logger.Info("Field patches proposed",
		zap.Int("flagged", len(flagged)),
		zap.Int("patches", len(patches)))
	return patches, nil
}

func flaggedFields(issues []validation.Issue) map[string]bool {
	flagged := make(map[string]bool)
	for _, issue := range issues {
		if issue.AutoResolvable && issue.Field != "" {
			flagged[issue.Field] = true
		}
	}
	return flagged
}

// Verify interface compliance
var _ port.FieldPatcher = (*FieldPatcher)(nil)
