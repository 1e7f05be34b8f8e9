package llm

import (
	"context"
	"strings"
	"testing"
)

func TestMockCompletion(t *testing.T) {
	client := NewMockClient()

	resp, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model: "mock-model",
		Messages: []ChatMessage{
			{Role: "system", Content: "you are a guide"},
			{Role: "user", Content: "what does mars mean for me?"},
		},
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion failed: %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message == nil {
		t.Fatalf("unexpected response shape: %+v", resp)
	}
	if !strings.Contains(resp.Choices[0].Message.Content, "mars") {
		t.Fatalf("reply should echo the question topic: %q", resp.Choices[0].Message.Content)
	}
	if resp.Usage == nil || resp.Usage.CompletionTokens == 0 {
		t.Fatalf("expected usage estimate, got %+v", resp.Usage)
	}
}

func TestMockStreamMatchesCompletion(t *testing.T) {
	client := NewMockClient()
	req := &ChatCompletionRequest{
		Model:    "mock-model",
		Messages: []ChatMessage{{Role: "user", Content: "tell me about venus"}},
	}

	var b strings.Builder
	usage, err := client.CreateChatCompletionStream(context.Background(), req, func(chunk *StreamChunk) error {
		for _, c := range chunk.Choices {
			if c.Delta != nil {
				b.WriteString(c.Delta.Content)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("CreateChatCompletionStream failed: %v", err)
	}

	resp, err := client.CreateChatCompletion(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateChatCompletion failed: %v", err)
	}
	if b.String() != resp.Choices[0].Message.Content {
		t.Fatalf("streamed text differs from completion:\n%q\n%q", b.String(), resp.Choices[0].Message.Content)
	}
	if usage == nil || usage.TotalTokens == 0 {
		t.Fatalf("expected stream usage, got %+v", usage)
	}
}

func TestMockStreamStopsOnCallbackError(t *testing.T) {
	client := NewMockClient()
	req := &ChatCompletionRequest{
		Model:    "mock-model",
		Messages: []ChatMessage{{Role: "user", Content: strings.Repeat("long question ", 20)}},
	}

	calls := 0
	_, err := client.CreateChatCompletionStream(context.Background(), req, func(chunk *StreamChunk) error {
		calls++
		return context.Canceled
	})
	if err == nil {
		t.Fatal("expected callback error to propagate")
	}
	if calls != 1 {
		t.Fatalf("expected streaming to stop after first error, got %d calls", calls)
	}
}
