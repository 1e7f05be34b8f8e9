// Package conversation selects the slice of a session's history that is
// handed to the language model. Selection is pure computation; it never
// touches storage and never reorders messages.
package conversation

import "github.com/astrialabs/astrochat/domain"

// charsPerToken is a crude approximation (not real tokenization) used when a
// message carries no reported token count.
const charsPerToken = 4

// Window is the context handed to the language model for one call.
type Window struct {
	// RecentMessages is a contiguous suffix of the conversation in
	// chronological order.
	RecentMessages []domain.Message
	// Summary is optional precomputed text covering everything older than
	// the oldest admitted message. Passed through untouched.
	Summary string
	// TotalMessages counts every message ever appended to the session.
	TotalMessages int
	// Truncated reports whether older messages were left out.
	Truncated bool
	// TokensUsed is the token sum (reported or estimated) of RecentMessages.
	TokensUsed int
}

// Options controls selection. When TokenBudget is positive the selector
// walks newest to oldest admitting whole messages while they fit; otherwise
// it takes the last MessageLimit messages.
type Options struct {
	TokenBudget  int
	MessageLimit int
	Summary      string
}

// EstimateTokens returns the message's reported token count, or a
// length-based estimate when none was recorded.
func EstimateTokens(msg domain.Message) int {
	if msg.TokenCount > 0 {
		return msg.TokenCount
	}
	return len(msg.Content) / charsPerToken
}

// Select builds the context window from the ordered message list.
// totalMessages is the session's lifetime count; it may exceed len(messages)
// when the cache has truncated older entries.
func Select(messages []domain.Message, totalMessages int, opts Options) Window {
	if totalMessages < len(messages) {
		totalMessages = len(messages)
	}
	w := Window{
		Summary:       opts.Summary,
		TotalMessages: totalMessages,
	}
	if len(messages) == 0 {
		return w
	}

	var selected []domain.Message
	if opts.TokenBudget > 0 {
		selected, w.TokensUsed = selectByTokens(messages, opts.TokenBudget)
	} else {
		selected = selectByCount(messages, opts.MessageLimit)
		for _, m := range selected {
			w.TokensUsed += EstimateTokens(m)
		}
	}

	w.RecentMessages = selected
	w.Truncated = totalMessages > len(selected)
	return w
}

// selectByTokens admits a contiguous suffix: the walk stops at the first
// message that would overflow the budget, so the model never sees a
// conversation with a hole in the middle. Messages are atomic; one that does
// not fit is excluded whole, even if it is the newest.
func selectByTokens(messages []domain.Message, budget int) ([]domain.Message, int) {
	total := 0
	start := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		tokens := EstimateTokens(messages[i])
		if total+tokens > budget {
			break
		}
		total += tokens
		start = i
	}
	if start == len(messages) {
		return nil, 0
	}
	out := make([]domain.Message, len(messages)-start)
	copy(out, messages[start:])
	return out, total
}

func selectByCount(messages []domain.Message, limit int) []domain.Message {
	if limit <= 0 || limit > len(messages) {
		limit = len(messages)
	}
	out := make([]domain.Message, limit)
	copy(out, messages[len(messages)-limit:])
	return out
}
