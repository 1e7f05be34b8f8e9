package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockClient is a canned implementation of Client for tests and local
// development without an API key.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ Client = (*MockClient)(nil)

// CreateChatCompletion returns a deterministic response derived from the
// last user message.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	content := m.generateResponse(req)
	prompt := m.estimatePromptTokens(req)

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			PromptTokens:     prompt,
			CompletionTokens: len(content) / 4,
			TotalTokens:      prompt + len(content)/4,
		},
	}, nil
}

// CreateChatCompletionStream simulates streaming by emitting the canned
// response in small chunks.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	content := m.generateResponse(req)
	id := fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano())
	created := time.Now().Unix()

	for i := 0; i < len(content); i += 16 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		end := i + 16
		if end > len(content) {
			end = len(content)
		}
		chunk := &StreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []Choice{
				{Index: 0, Delta: &ChatMessage{Content: content[i:end]}},
			},
		}
		if err := callback(chunk); err != nil {
			return nil, err
		}
	}

	prompt := m.estimatePromptTokens(req)
	usage := &Usage{
		PromptTokens:     prompt,
		CompletionTokens: len(content) / 4,
		TotalTokens:      prompt + len(content)/4,
	}
	return usage, nil
}

func (m *MockClient) generateResponse(req *ChatCompletionRequest) string {
	var lastUser string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUser = req.Messages[i].Content
			break
		}
	}
	if lastUser == "" {
		return "The stars are quiet today. Ask me anything about your chart."
	}
	topic := lastUser
	if len(topic) > 40 {
		topic = topic[:40]
	}
	return fmt.Sprintf("Reading the heavens for %q: the current alignment favors patience. %s",
		strings.TrimSpace(topic),
		"Mercury's position suggests clear communication will serve you well.")
}

func (m *MockClient) estimatePromptTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}
