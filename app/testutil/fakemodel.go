// Package testutil provides in-memory fakes for tests.
package testutil

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// FakeModel is a scripted language model.
type FakeModel struct {
	mu sync.Mutex

	// Response is returned as the single choice content.
	Response string
	// Err is returned instead of a response when set.
	Err error
	// NoChoices makes the model answer with an empty choice list.
	NoChoices bool

	calls    int
	messages []llms.MessageContent
	options  llms.CallOptions
}

// NewFakeModel creates a FakeModel that answers with response.
func NewFakeModel(response string) *FakeModel {
	return &FakeModel{Response: response}
}

// GenerateContent implements extraction.Model.
func (f *FakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.messages = messages
	f.options = llms.CallOptions{}
	for _, opt := range options {
		opt(&f.options)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if f.NoChoices {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.Response}},
	}, nil
}

// Calls returns how many times GenerateContent was called.
func (f *FakeModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastMessages returns the messages of the most recent call.
func (f *FakeModel) LastMessages() []llms.MessageContent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages
}

// LastOptions returns the call options of the most recent call.
func (f *FakeModel) LastOptions() llms.CallOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.options
}
