package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Anthropic config
	if c.Anthropic.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "anthropic.api_key",
			Message: "Anthropic API key is required (set ANTHROPIC_API_KEY)",
		})
	}

	if c.Anthropic.MaxTokens < 1 || c.Anthropic.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "anthropic.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.Anthropic.Temperature < 0 || c.Anthropic.Temperature > 1 {
		errors = append(errors, ValidationError{
			Field:   "anthropic.temperature",
			Message: "temperature must be between 0 and 1",
		})
	}

	// Validate Embeddings config
	if c.Embeddings.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "embeddings.base_url",
			Message: "Ollama base URL is required",
		})
	} else if _, err := url.Parse(c.Embeddings.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "embeddings.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	// Validate Database config
	if c.Database.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "database URL is required (set DATABASE_URL)",
		})
	} else if _, err := url.Parse(c.Database.URL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "invalid database URL",
		})
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Database.EmbedRate <= 0 {
		errors = append(errors, ValidationError{
			Field:   "database.embed_rate",
			Message: "embed_rate must be positive",
		})
	}

	// Validate Processor config
	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	// Validate Search and Session config
	if c.Search.MaxResults < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.max_results",
			Message: "max_results must be positive",
		})
	}

	if c.Session.MaxHistory < 1 {
		errors = append(errors, ValidationError{
			Field:   "session.max_history",
			Message: "max_history must be positive",
		})
	}

	// Validate Server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	return errors
}
