package agent

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
)

const (
	// DefaultPromptBaseURL is the OpenAI-compatible Hugging Face router
	DefaultPromptBaseURL = "https://router.huggingface.co/v1"
	DefaultPromptModel   = "meta-llama/Llama-3.1-8B-Instruct"

	promptMaxTokens = 50
)

// PromptParams shape a generated writing prompt
type PromptParams struct {
	Seed   *int64 `json:"seed,omitempty"`
	Gender string `json:"gender,omitempty"`
	Custom string `json:"custom,omitempty"`
}

// Input renders the text sent to the model. Seed defaults to 0 and
// gender to female.
func (p PromptParams) Input() string {
	var seed int64
	if p.Seed != nil {
		seed = *p.Seed
	}
	gender := p.Gender
	if gender == "" {
		gender = "female"
	}
	return strings.TrimSpace(fmt.Sprintf("%s seed=%d gender=%s", p.Custom, seed, gender))
}

// PromptConfig configures a PromptGenerator
type PromptConfig struct {
	Token   string
	BaseURL string
	Model   string
}

// PromptGenerator produces short writing prompts from a hosted model
type PromptGenerator struct {
	client openai.Client
	model  string
}

// NewPromptGenerator creates a generator. The token is required.
func NewPromptGenerator(cfg PromptConfig) (*PromptGenerator, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("HF_API_TOKEN not set: %w", ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPromptBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultPromptModel
	}
	opts := []ooption.RequestOption{
		ooption.WithAPIKey(cfg.Token),
		ooption.WithBaseURL(cfg.BaseURL),
		ooption.WithMaxRetries(0),
	}
	return &PromptGenerator{client: openai.NewClient(opts...), model: cfg.Model}, nil
}

// Generate returns the model's continuation of p.Input()
func (g *PromptGenerator) Generate(ctx context.Context, p PromptParams) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(p.Input()),
		},
		MaxTokens: openai.Int(promptMaxTokens),
	}
	if p.Seed != nil {
		params.Seed = openai.Int(*p.Seed)
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", upstream("prompt", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("prompt: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
