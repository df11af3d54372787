package config

import (
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"todo-ai/app/extraction"
)

// InitModel creates the OpenAI-compatible chat model used for task extraction.
func InitModel(cfg LLMConfig) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithBaseURL(cfg.BaseURL),
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	return openai.New(opts...)
}

// ExtractionOptions converts the LLM settings to engine options.
func (c LLMConfig) ExtractionOptions() extraction.Options {
	return extraction.Options{
		Temperature:       c.Temperature,
		MaxTokens:         c.MaxTokens,
		Timeout:           c.Timeout,
		RequestsPerMinute: c.RequestsPerMinute,
	}
}
