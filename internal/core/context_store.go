package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/awais7012/Generative-AI/internal/store"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContextStore keeps an append-only sliding window of turns per
// (user, chat) pair: bounded length, whole-window expiry. Inactive
// conversations are forgotten as a unit; individual old turns are not expired
// while the conversation stays active.
type ContextStore struct {
	cache    ConversationCache
	maxTurns int
	ttl      time.Duration
}

func NewContextStore(cache ConversationCache, maxTurns int, ttl time.Duration) *ContextStore {
	if maxTurns <= 0 {
		maxTurns = 50
	}
	return &ContextStore{cache: cache, maxTurns: maxTurns, ttl: ttl}
}

// Append pushes a new turn to the front of the window, truncates it to the
// most recent maxTurns entries and resets the window's expiry timer.
func (s *ContextStore) Append(ctx context.Context, userID, chatID, role, content string) error {
	turn := store.Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to encode turn: %w", err)
	}
	return s.cache.PushTurn(ctx, userID, chatID, payload, int64(s.maxTurns), s.ttl)
}

// Recent renders the most recent limit turns, oldest first, as
// "role: content" lines for prompt construction. A new conversation yields an
// empty string, not an error.
func (s *ContextStore) Recent(ctx context.Context, userID, chatID string, limit int) (string, error) {
	if limit <= 0 || limit > s.maxTurns {
		limit = s.maxTurns
	}
	payloads, err := s.cache.RecentTurns(ctx, userID, chatID, int64(limit))
	if err != nil {
		return "", err
	}
	if len(payloads) == 0 {
		return "", nil
	}

	// Payloads are newest-first; render oldest-first.
	var b strings.Builder
	for i := len(payloads) - 1; i >= 0; i-- {
		var turn store.Turn
		if err := json.Unmarshal(payloads[i], &turn); err != nil {
			log.Printf("Skipping malformed turn in chat %s: %v", chatID, err)
			continue
		}
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}
