package provider

import (
	"context"
	"fmt"
)

// Client builds Callers for one provider account.
type Client interface {
	Caller(format ResponseFormat) Caller
}

// NewClient creates the Client for providerName. An empty apiKey yields (nil, nil): callers are then
// left unset and requests fail with a missing credential error instead of failing at startup.
func NewClient(ctx context.Context, providerName, apiKey string, maxOutputTokens int) (Client, error) {
	if err := ValidateProvider(providerName); err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, nil
	}
	if providerName == OpenAI {
		c, err := NewOpenAIClient(apiKey, maxOutputTokens)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	c, err := NewGeminiClient(ctx, apiKey, maxOutputTokens)
	if err != nil {
		return nil, fmt.Errorf("%s client: %w", DisplayName(providerName), err)
	}
	return c, nil
}
