package core

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Tokenizer-unavailable fallback: word count times a constant factor.
const approxTokensPerWord = 3

// Accountant records token consumption against the durable counters. Both the
// tenant and the conversation counter move in a single logical unit of work
// (one transaction in the store), never as two independently-failing calls.
type Accountant struct {
	store   UsageStore
	counter TokenCounter
}

func NewAccountant(usageStore UsageStore, counter TokenCounter) *Accountant {
	return &Accountant{store: usageStore, counter: counter}
}

// Count returns the token count for text, approximating when the tokenizer
// is unavailable rather than failing the request.
func (a *Accountant) Count(ctx context.Context, text string) int64 {
	if text == "" {
		return 0
	}
	if a.counter != nil {
		if n, err := a.counter.CountTokens(ctx, text); err == nil {
			return int64(n)
		} else {
			log.Printf("Tokenizer unavailable, falling back to approximate count: %v", err)
		}
	}
	return int64(len(strings.Fields(text))) * approxTokensPerWord
}

// Record atomically adds tokens to both the user's and the chat's counters.
func (a *Accountant) Record(ctx context.Context, userID, chatID string, tokens int64) error {
	if tokens <= 0 {
		return nil
	}
	if err := a.store.AddUsage(ctx, userID, chatID, tokens); err != nil {
		return fmt.Errorf("failed to record %d tokens for user %s chat %s: %w", tokens, userID, chatID, err)
	}
	return nil
}
