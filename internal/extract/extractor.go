package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/payables-ai/invoice-triage/internal/application/port"
	"github.com/payables-ai/invoice-triage/internal/domain/document"
)

// maxVisionPages caps the page images sent per request to control cost.
const maxVisionPages = 2

// VisionExtractor implements port.Extractor by rendering invoice pages and
// asking a vision-capable chat model to read them. All extracted values are
// kept as raw strings; validation parses them later.
type VisionExtractor struct {
	client    *openai.Client
	converter *PDFConverter
	model     string
	logger    *zap.Logger
}

// NewVisionExtractor creates a new vision-based extractor
func NewVisionExtractor(apiKey, model string, logger *zap.Logger) *VisionExtractor {
	return &VisionExtractor{
		client:    openai.NewClient(apiKey),
		converter: NewPDFConverter(logger),
		model:     model,
		logger:    logger,
	}
}

// extractionResponse mirrors the JSON structure requested from the model.
type extractionResponse struct {
	Header struct {
		VendorName    string `json:"vendor_name"`
		InvoiceNumber string `json:"invoice_number"`
		InvoiceDate   string `json:"invoice_date"`
		DueDate       string `json:"due_date"`
		Currency      string `json:"currency"`
		PONumber      string `json:"po_number"`
		PaymentTerms  string `json:"payment_terms"`
		Subtotal      string `json:"subtotal"`
		Tax           string `json:"tax"`
		Total         string `json:"total"`
	} `json:"header"`
	Lines []struct {
		Description string `json:"description"`
		Quantity    string `json:"quantity"`
		UnitPrice   string `json:"unit_price"`
		Amount      string `json:"amount"`
	} `json:"lines"`
	Confidence struct {
		Overall float64            `json:"overall"`
		Fields  map[string]float64 `json:"fields"`
	} `json:"confidence"`
}

// Extract reads an invoice file and returns the structured document.
func (e *VisionExtractor) Extract(ctx context.Context, filePath string) (*document.DocumentData, error) {
	e.logger.Info("Extracting invoice", zap.String("path", filePath))

	images, err := e.converter.PageImages(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to render invoice pages: %w", err)
	}
	if len(images) > maxVisionPages {
		images = images[:maxVisionPages]
	}

	contentParts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: extractionPrompt,
		},
	}
	for _, imgData := range images {
		contentParts = append(contentParts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(imgData)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		MaxTokens:   4096,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert at reading vendor invoices. Transcribe field values exactly as printed. Always respond with valid JSON.",
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: contentParts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		e.logger.Error("Vision API call failed", zap.Error(err))
		return nil, fmt.Errorf("vision API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from vision API")
	}

	content := resp.Choices[0].Message.Content

	var parsed extractionResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		e.logger.Error("Failed to parse extraction response",
			zap.Error(err),
			zap.String("content", content))
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	doc := &document.DocumentData{
		Header: document.Header{
			VendorName:    parsed.Header.VendorName,
			InvoiceNumber: parsed.Header.InvoiceNumber,
			InvoiceDate:   parsed.Header.InvoiceDate,
			DueDate:       parsed.Header.DueDate,
			Currency:      parsed.Header.Currency,
			PONumber:      parsed.Header.PONumber,
			PaymentTerms:  parsed.Header.PaymentTerms,
			Subtotal:      parsed.Header.Subtotal,
			Tax:           parsed.Header.Tax,
			Total:         parsed.Header.Total,
		},
		Confidence: document.Confidence{
			Overall: parsed.Confidence.Overall,
			Fields:  parsed.Confidence.Fields,
		},
	}
	for _, line := range parsed.Lines {
		doc.Lines = append(doc.Lines, document.LineItem{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Amount:      line.Amount,
		})
	}

	e.logger.Info("Invoice extracted",
		zap.String("vendor", doc.Header.VendorName),
		zap.String("invoice_number", doc.Header.InvoiceNumber),
		zap.Int("lines", len(doc.Lines)),
		zap.Float64("confidence", doc.Confidence.Overall))

	return doc, nil
}

// Verify interface compliance
var _ port.Extractor = (*VisionExtractor)(nil)
