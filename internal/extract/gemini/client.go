// Package gemini calls the hosted multimodal model that reads receipt photos.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultModel = "gemini-2.5-flash-lite"

// Client extracts structured receipt data from an image. The model output is
// opaque here; internal/extract owns validation and coercion.
type Client struct {
	apiKey    string
	modelName string
}

func NewClient(apiKey, modelName string) *Client {
	if modelName == "" {
		modelName = defaultModel
	}
	return &Client{apiKey: apiKey, modelName: modelName}
}

// IsAvailable reports whether an API key is configured.
func (c *Client) IsAvailable() bool {
	return c.apiKey != ""
}

// ExtractReceipt sends the image to the model and returns the raw JSON text
// of the extraction, untouched.
func (c *Client) ExtractReceipt(ctx context.Context, imageFormat string, image []byte) ([]byte, error) {
	if !c.IsAvailable() {
		return nil, fmt.Errorf("gemini client is not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.modelName)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(normalizeFormat(imageFormat), image),
		genai.Text(extractionPrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from gemini")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text = string(t)
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	return []byte(text), nil
}

func normalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimPrefix(format, "."))
	switch f {
	case "jpg", "":
		return "jpeg"
	default:
		return f
	}
}

const extractionPrompt = `You read retail receipts. Extract the receipt in this photo as JSON:

{
  "storeName": "string",
  "date": "YYYY-MM-DD",
  "totalAmount": number,
  "subtotal": number,
  "taxAmount": number,
  "discountAmount": number,
  "items": [
    { "name": "string", "price": number, "quantity": integer,
      "category": "Food|Utilities|Shopping|Transportation|Entertainment|Healthcare|Others" }
  ]
}

Rules:
- totalAmount is the amount actually paid.
- Omit any field you cannot read; do not invent values.
- Keep items in the order they appear on the receipt.
- If the photo is not a receipt, respond with {"error": "not a receipt"}.
- Respond with the JSON object only, no extra text.`
