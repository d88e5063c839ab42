package genservice

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"persona/internal/logging"
)

// GeminiClient implements Client on top of the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
	params Params
}

// NewGeminiClient builds a Gemini-backed generation client.
func NewGeminiClient(ctx context.Context, params Params) (*GeminiClient, error) {
	if params.APIKey == "" {
		return nil, fmt.Errorf("generation API key is required")
	}
	if params.Model == "" {
		params.Model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: params.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	logging.Agent("generation client ready (model=%s)", params.Model)
	return &GeminiClient{client: client, model: params.Model, params: params}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, "", prompt)
}

func (c *GeminiClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	return c.generate(ctx, system, prompt)
}

func (c *GeminiClient) generate(ctx context.Context, system, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.params.Temperature),
	}
	if c.params.MaxTokens > 0 {
		cfg.MaxOutputTokens = c.params.MaxTokens
	}
	if c.params.TopP > 0 {
		cfg.TopP = genai.Ptr(c.params.TopP)
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("generation returned empty response")
	}
	logging.AgentDebug("generation: %d chars in, %d chars out", len(prompt), len(text))
	return text, nil
}
