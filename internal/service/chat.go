package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/astrialabs/astrochat/domain"
	"github.com/astrialabs/astrochat/internal/adapter/llm"
	"github.com/astrialabs/astrochat/internal/conversation"
	"github.com/astrialabs/astrochat/internal/evaluation"
	"github.com/astrialabs/astrochat/internal/retry"
)

const (
	// maxTitleLen bounds the auto-generated session title.
	maxTitleLen = 50

	systemPrompt = "You are Astria, a warm and knowledgeable astrology guide. " +
		"Ground every reading in the user's chart when one is available, " +
		"and answer plainly when the question is not about astrology."

	// fallbackReply is returned as a normal assistant turn when the
	// language model fails. The conversation stays consistent either way.
	fallbackReply = "I apologize, but the stars are clouded right now and I " +
		"could not complete a reading. Please try again in a moment."
)

// ChatRequest is one user turn submitted to a session.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content"`
}

// ChatResponse is the completed exchange.
type ChatResponse struct {
	SessionID   string          `json:"session_id"`
	UserMessage *domain.Message `json:"user_message"`
	Reply       *domain.Message `json:"reply"`
	ContextSize int             `json:"context_size"`
	Truncated   bool            `json:"truncated"`
}

// replyMetadata is stored on assistant messages.
type replyMetadata struct {
	Model      string             `json:"model,omitempty"`
	LatencyMs  int64              `json:"latency_ms"`
	Fallback   bool               `json:"fallback,omitempty"`
	Evaluation *evaluation.Scores `json:"evaluation,omitempty"`
}

// ProcessMessage runs one full chat exchange: append the user turn, select
// the context window, call the model, append the reply, and persist.
func (s *Service) ProcessMessage(ctx context.Context, ownerID string, req ChatRequest) (*ChatResponse, error) {
	return s.processMessage(ctx, ownerID, req, nil)
}

// ProcessMessageStream is ProcessMessage with reply chunks delivered through
// onChunk as they arrive. The completed reply is still stored and returned.
func (s *Service) ProcessMessageStream(ctx context.Context, ownerID string, req ChatRequest, onChunk func(delta string) error) (*ChatResponse, error) {
	return s.processMessage(ctx, ownerID, req, onChunk)
}

func (s *Service) processMessage(ctx context.Context, ownerID string, req ChatRequest, onChunk func(delta string) error) (*ChatResponse, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}

	sess, err := s.resolveOrCreate(ctx, ownerID, req.SessionID, content)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive {
		return nil, fmt.Errorf("session %s is archived: %w", sess.ID, domain.ErrNotFound)
	}

	userMsg, err := s.sessions.AppendMessage(ctx, sess.ID, domain.Message{
		Role:    domain.RoleUser,
		Content: content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	history, err := s.bridge.ReadWithFallback(ctx, sess.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	window := conversation.Select(history, sess.MessageCount+1, conversation.Options{
		TokenBudget:  s.config.ContextTokenBudget,
		MessageLimit: s.config.ContextMessageLimit,
	})

	llmReq := s.buildCompletionRequest(ctx, sess, window, content)

	reply, usage, llmErr := s.complete(ctx, llmReq, onChunk)
	latency := time.Since(userMsg.CreatedAt).Milliseconds()

	meta := replyMetadata{Model: s.config.LLMModel, LatencyMs: latency}
	tokenCount := 0
	if llmErr != nil {
		log.Printf("WARN: llm call failed for session %s: %v", sess.ID, llmErr)
		reply = fallbackReply
		meta.Fallback = true
		if onChunk != nil {
			if err := onChunk(fallbackReply); err != nil {
				return nil, err
			}
		}
	} else if usage != nil {
		tokenCount = usage.CompletionTokens
	}
	if !meta.Fallback {
		scores := evaluation.Evaluate(content, reply)
		meta.Evaluation = &scores
	}
	metaRaw, _ := json.Marshal(meta)

	assistantMsg, err := s.sessions.AppendMessage(ctx, sess.ID, domain.Message{
		Role:       domain.RoleAssistant,
		Content:    reply,
		TokenCount: tokenCount,
		Metadata:   metaRaw,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append reply: %w", err)
	}

	// Durability is best effort per exchange; unsynced turns are retried on
	// the next persist pass and the cached copy stays authoritative.
	if _, err := s.bridge.Persist(ctx, sess.ID); err != nil {
		log.Printf("WARN: failed to persist session %s: %v", sess.ID, err)
	}

	return &ChatResponse{
		SessionID:   sess.ID,
		UserMessage: userMsg,
		Reply:       assistantMsg,
		ContextSize: len(window.RecentMessages),
		Truncated:   window.Truncated,
	}, nil
}

func (s *Service) resolveOrCreate(ctx context.Context, ownerID, sessionID, firstMessage string) (*domain.Session, error) {
	if sessionID != "" {
		sess, err := s.bridge.ResolveSession(ctx, sessionID, ownerID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve session: %w", err)
		}
		return sess, nil
	}

	title := firstMessage
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}
	sess, err := s.sessions.CreateSession(ctx, ownerID, title)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

func (s *Service) buildCompletionRequest(ctx context.Context, sess *domain.Session, window conversation.Window, latest string) *llm.ChatCompletionRequest {
	msgs := make([]llm.ChatMessage, 0, len(window.RecentMessages)+3)
	msgs = append(msgs, llm.ChatMessage{Role: string(domain.RoleSystem), Content: systemPrompt})

	if sess.ChartID != "" {
		if chartCtx := s.chartContext(ctx, sess.ChartID, sess.OwnerID); chartCtx != "" {
			msgs = append(msgs, llm.ChatMessage{Role: string(domain.RoleSystem), Content: chartCtx})
		}
	}
	if window.Summary != "" {
		msgs = append(msgs, llm.ChatMessage{
			Role:    string(domain.RoleSystem),
			Content: "Summary of the earlier conversation: " + window.Summary,
		})
	}
	for _, m := range window.RecentMessages {
		msgs = append(msgs, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	// The newest user turn always reaches the model, even when the window
	// came back empty because the turn alone exceeds the budget.
	if len(window.RecentMessages) == 0 {
		msgs = append(msgs, llm.ChatMessage{Role: string(domain.RoleUser), Content: latest})
	}

	return &llm.ChatCompletionRequest{
		Model:    s.config.LLMModel,
		Messages: msgs,
	}
}

// complete calls the model, retrying transient failures once. Streaming and
// non-streaming calls return the same accumulated reply text.
func (s *Service) complete(ctx context.Context, req *llm.ChatCompletionRequest, onChunk func(delta string) error) (string, *llm.Usage, error) {
	var reply string
	var usage *llm.Usage

	cfg := retry.Default
	if onChunk != nil {
		// Chunks already delivered cannot be taken back, so streams get a
		// single attempt.
		cfg.Attempts = 1
	}

	err := retry.Do(ctx, cfg, func() error {
		reply = ""
		usage = nil

		if onChunk == nil {
			resp, err := s.llmClient.CreateChatCompletion(ctx, req)
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
				return fmt.Errorf("empty completion")
			}
			reply = resp.Choices[0].Message.Content
			usage = resp.Usage
			return nil
		}

		streamReq := *req
		streamReq.Stream = true
		var b strings.Builder
		u, err := s.llmClient.CreateChatCompletionStream(ctx, &streamReq, func(chunk *llm.StreamChunk) error {
			for _, c := range chunk.Choices {
				if c.Delta != nil && c.Delta.Content != "" {
					b.WriteString(c.Delta.Content)
					if err := onChunk(c.Delta.Content); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		reply = b.String()
		usage = u
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	if reply == "" {
		return "", nil, fmt.Errorf("empty completion")
	}
	return reply, usage, nil
}

func (s *Service) chartContext(ctx context.Context, chartID, ownerID string) string {
	chart, err := s.repo.GetChart(ctx, chartID, ownerID)
	if err != nil {
		log.Printf("WARN: failed to load chart %s: %v", chartID, err)
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "The user's birth chart %q (%s, %s houses, %s zodiac): born %s at %s in %s.",
		chart.Name, chart.ChartType, chart.HouseSystem, chart.ZodiacSystem,
		chart.BirthDate, chart.BirthTime, chart.BirthLocation)
	if len(chart.Positions) > 0 {
		b.WriteString(" Planetary positions: ")
		b.Write(chart.Positions)
	}
	return b.String()
}
