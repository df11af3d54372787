// Package extraction turns free-form text into an ordered list of task descriptions
// by asking a language model and recovering a list from whatever it answers.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"todo-ai/app/metrics"
)

// Default sampling and timeout values.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1000
	DefaultTimeout     = 30 * time.Second

	defaultBurst = 5
)

// Model is the part of a langchaingo llms.Model the engine needs.
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Options controls sampling and call limits.
type Options struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// RequestsPerMinute throttles model calls with a burst of five. Zero disables throttling.
	// A call that cannot get a token before the caller's deadline fails without reaching the model.
	RequestsPerMinute float64
}

// Engine extracts task descriptions from text. It holds no per-request state and is safe
// for concurrent use.
type Engine struct {
	model   Model
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewEngine creates an Engine. Zero option values are replaced with defaults.
func NewEngine(model Model, opts Options, logger *zap.Logger, m *metrics.Metrics) (*Engine, error) {
	if model == nil {
		return nil, errors.New("extraction: model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	e := &Engine{
		model:   model,
		opts:    opts,
		logger:  logger,
		metrics: m,
	}
	if opts.RequestsPerMinute > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerMinute/60), defaultBurst)
	}
	return e, nil
}

// Extract returns the task descriptions found in text, in the order they were produced.
// Every returned element is non-empty and trimmed.
//
// It fails with ErrModelInvocation when the model cannot be reached or answers with nothing,
// and with ErrEmptyResult when no task survives parsing.
func (e *Engine) Extract(ctx context.Context, text string) ([]string, error) {
	raw, err := e.complete(ctx, text)
	if err != nil {
		e.logger.Warn("model completion failed", zap.Error(err))
		return nil, err
	}
	e.logger.Debug("model response", zap.String("raw", raw))

	res, err := ParseResponse(raw)
	if err != nil {
		e.logger.Info("no tasks recovered from model response",
			zap.String("stage", string(res.Stage)),
			zap.Int("response_len", len(raw)),
		)
		return nil, err
	}

	e.metrics.ExtractionStage.WithLabelValues(string(res.Stage)).Inc()
	e.logger.Info("extracted tasks",
		zap.String("stage", string(res.Stage)),
		zap.Int("count", len(res.Items)),
	)
	return res.Items, nil
}

// complete makes the single model call for one extraction.
func (e *Engine) complete(ctx context.Context, text string) (string, error) {
	// The limiter waits on the caller's context. Timeout only bounds the model call.
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate limiter: %w", ErrModelInvocation, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}

	start := time.Now()
	resp, err := e.model.GenerateContent(ctx, messages,
		llms.WithTemperature(e.opts.Temperature),
		llms.WithMaxTokens(e.opts.MaxTokens),
	)
	e.metrics.ModelDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrModelInvocation, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("%w: response has no choices", ErrModelInvocation)
	}

	content := resp.Choices[0].Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrModelInvocation)
	}
	return content, nil
}
