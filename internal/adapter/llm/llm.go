// Package llm provides the language-model collaborator client. The wire
// format is OpenAI-compatible chat completions as served by OpenRouter.
package llm

import (
	"context"
	"log"
	"os"
	"time"
)

// Client defines the interface for language-model operations. The
// collaborator is unreliable: it may error or return empty content, and
// callers must substitute a fallback message.
type Client interface {
	// CreateChatCompletion sends a chat completion request (non-streaming).
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

	// CreateChatCompletionStream sends a streaming chat completion request.
	// The callback is called for each chunk received.
	CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error)
}

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "ASTROCHAT_MODE"
	// ModeMock indicates the mock client should be used.
	ModeMock = "MOCK"
)

// NewClient creates an LLM client based on the ASTROCHAT_MODE environment
// variable. MOCK returns a canned client; anything else returns the real
// HTTP client.
func NewClient(baseURL, apiKey string, timeout time.Duration) Client {
	if os.Getenv(EnvMode) == ModeMock {
		log.Println("ASTROCHAT_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}
	return NewHTTPClient(baseURL, apiKey, timeout)
}
