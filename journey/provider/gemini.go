package provider

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

type GeminiClient struct {
	client          *genai.Client
	maxOutputTokens int32
}

// NewGeminiClient creates a Gemini API client. maxOutputTokens <= 0 leaves the model default.
func NewGeminiClient(ctx context.Context, apiKey string, maxOutputTokens int) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("NewGeminiClient: api key is empty")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiClient{client: c, maxOutputTokens: int32(max(maxOutputTokens, 0))}, nil
}

func (g *GeminiClient) Caller(format ResponseFormat) Caller {
	return func(ctx context.Context, model, prompt string) (string, error) {
		cfg := &genai.GenerateContentConfig{}
		if g.maxOutputTokens > 0 {
			cfg.MaxOutputTokens = g.maxOutputTokens
		}
		if format.JSON {
			cfg.ResponseMIMEType = "application/json"
			if format.Schema != nil {
				cfg.ResponseJsonSchema = format.Schema
			}
		}
		resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
}
