package llm

import (
	"context"
	"fmt"
	"strings"
)

// Speaker identifies who said a turn in the interview conversation.
type Speaker string

const (
	Interviewer Speaker = "interviewer"
	Candidate   Speaker = "candidate"
)

// Turn is one exchange in the conversation sent to the model.
type Turn struct {
	Speaker Speaker
	Text    string
}

// Prompt is a completion request: a system instruction plus the
// conversation so far. The model answers as the interviewer.
type Prompt struct {
	System    string
	Turns     []Turn
	MaxTokens int
}

const defaultMaxTokens = 256

func (p Prompt) maxTokens() int {
	if p.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return p.MaxTokens
}

func (p Prompt) hasCandidateTurn() bool {
	for _, t := range p.Turns {
		if t.Speaker == Candidate {
			return true
		}
	}
	return false
}

type Client interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
}

func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

func ParseModel(model string) (provider, modelName string, err error) {
	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid model format %q: expected provider/model_name", model)
	}
	return parts[0], parts[1], nil
}

func NewClient(provider, apiKey, model string, opts ...Option) (Client, error) {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	switch provider {
	case "openai":
		return newOpenAIClient(apiKey, model, o)
	case "anthropic":
		return newAnthropicClient(apiKey, model, o)
	case "gemini":
		return newGeminiClient(apiKey, model, o)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q: supported providers are openai, anthropic, gemini", provider)
	}
}
