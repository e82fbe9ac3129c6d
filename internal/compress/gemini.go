package compress

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Ensure GeminiClient implements Compressor at compile time.
var _ Compressor = (*GeminiClient)(nil)

// GeminiClient is the Gemini-backed compression backend.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient wraps an authenticated genai client.
func NewGeminiClient(client *genai.Client, model string) *GeminiClient {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{client: client, model: model}
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string { return c.model }

// Compress implements Compressor using GenerateContent.
func (c *GeminiClient) Compress(ctx context.Context, req Request) (*Response, error) {
	temp := float32(0.3)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You condense document sections under strict character budgets while preserving all numbers and named entities verbatim.",
			}},
		},
		Temperature: &temp,
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: BuildPrompt(req)}},
		}},
		config,
	)
	if err != nil {
		return nil, &RetryableError{Message: err.Error()}
	}
	if result == nil {
		return nil, &RetryableError{Message: "gemini returned nil result"}
	}

	text := stripCodeBlock(result.Text())
	if text == "" {
		return nil, fmt.Errorf("gemini returned empty text")
	}
	return &Response{
		Text:            text,
		CoveredEntities: coveredIn(text, req.RequiredEntities),
	}, nil
}
