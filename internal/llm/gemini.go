package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type geminiClient struct {
	client *genai.Client
	model  string
}

func newGeminiClient(apiKey, model string, opts *clientOptions) (*geminiClient, error) {
	ctx := context.Background()
	config := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if opts.baseURL != "" {
		config.HTTPOptions.BaseURL = opts.baseURL
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &geminiClient{client: client, model: model}, nil
}

func geminiContents(prompt Prompt) (*genai.Content, []*genai.Content) {
	var systemInstruction *genai.Content
	if prompt.System != "" {
		systemInstruction = &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}}
	}

	contents := make([]*genai.Content, 0, len(prompt.Turns))
	for _, t := range prompt.Turns {
		role := "user"
		if t.Speaker == Interviewer {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: t.Text}}})
	}
	return systemInstruction, contents
}

func (c *geminiClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if !prompt.hasCandidateTurn() {
		return "", fmt.Errorf("gemini: no candidate turn provided")
	}

	systemInstruction, contents := geminiContents(prompt)
	config := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		MaxOutputTokens:   int32(prompt.maxTokens()),
	}
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: empty response text")
	}
	return text, nil
}
