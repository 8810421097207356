package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

// SystemPrompt is the static instruction block sent with every
// generation request. Conversation history, when present, is appended
// under a "Previous conversation:" heading.
const SystemPrompt = `You are an AI assistant specialized in course materials and educational content with access to a search tool for course information.

Search Tool Usage:
- Use the search tool only for questions about specific course content or detailed educational materials
- You may search at most once per question
- Synthesize search results into accurate, fact-based responses
- If the search yields no results, state this clearly without offering alternatives

Response Protocol:
- General knowledge questions: answer using existing knowledge without searching
- Course-specific questions: search first, then answer
- No meta-commentary: provide direct answers only, with no reasoning process, search explanations, or question-type analysis

All responses must be:
1. Brief, concise and focused - get to the point quickly
2. Educational - maintain instructional value
3. Clear - use accessible language
4. Example-supported - include relevant examples when they aid understanding
Provide only the direct answer to what was asked.`

// GenerationError wraps a generator invocation failure. It is the
// only retrieval-pipeline error that escapes to the caller as a hard
// failure; retries, if any, belong to the caller.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// GeneratorConfig represents the configuration for the answer model.
type GeneratorConfig struct {
	Model       string
	APIKey      string
	Temperature float64 // 0 for deterministic answers
	MaxTokens   int
}

// Generator produces answers through Anthropic's message API, with
// optional tool advertisement per call.
type Generator struct {
	config GeneratorConfig
	model  llms.Model
}

func NewGeneratorWithConfig(config GeneratorConfig) (*Generator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if config.Model == "" {
		config.Model = "claude-3-5-sonnet-20241022"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 800
	}

	model, err := anthropic.New(
		anthropic.WithModel(config.Model),
		anthropic.WithToken(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	return &Generator{
		config: config,
		model:  model,
	}, nil
}

// NewGeneratorWithModel wires an existing model, used by tests to
// substitute a fake.
func NewGeneratorWithModel(config GeneratorConfig, model llms.Model) *Generator {
	if config.MaxTokens == 0 {
		config.MaxTokens = 800
	}
	return &Generator{config: config, model: model}
}

// BuildSystem combines the static system prompt with formatted
// conversation history.
func BuildSystem(history string) string {
	if history == "" {
		return SystemPrompt
	}
	return SystemPrompt + "\n\nPrevious conversation:\n" + history
}

// Generate runs one model invocation. When tools is non-empty they
// are advertised with tool choice left to the model; the returned
// choice may therefore carry tool calls instead of text.
func (g *Generator) Generate(ctx context.Context, system string, messages []llms.MessageContent, tools []llms.Tool) (*llms.ContentChoice, error) {
	content := make([]llms.MessageContent, 0, len(messages)+1)
	content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, system))
	content = append(content, messages...)

	opts := []llms.CallOption{
		llms.WithTemperature(g.config.Temperature),
		llms.WithMaxTokens(g.config.MaxTokens),
	}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
	}

	resp, err := g.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &GenerationError{Err: fmt.Errorf("empty response from model")}
	}

	return resp.Choices[0], nil
}
