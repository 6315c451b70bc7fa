package core

import (
	"context"
	"time"

	"github.com/awais7012/Generative-AI/internal/index"
	"github.com/awais7012/Generative-AI/internal/store"
)

// Embedder turns text into dense vectors. Implemented by LLMService.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// TokenCounter counts tokens the way the generation model does. Implemented
// by LLMService; the Accountant falls back to an approximation when it fails.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int32, error)
}

// LLM is the generation surface the pipeline needs.
type LLM interface {
	Enhance(ctx context.Context, prompt string) (string, error)
	Complete(ctx context.Context, prompt string) (string, error)
	GenerateTitle(ctx context.Context, basis string) (string, error)
}

// VectorIndex is the similarity-search service contract, partitioned by
// tenant namespace. Implemented by index.PineconeClient.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, vectors []index.Vector) error
	Query(ctx context.Context, namespace string, dense []float32, sparseVec *index.SparseValues, topK int, filter map[string]any) ([]index.Match, error)
	ListTexts(ctx context.Context, namespace string, limit int) ([]string, error)
}

// UsageStore is the durable document store for users and chats. Implemented
// by store.SQLiteStore.
type UsageStore interface {
	GetOrCreateUser(ctx context.Context, userID string, isGuest bool) (*store.User, error)
	GetOrCreateChat(ctx context.Context, userID, chatID string) (*store.Chat, error)
	ListChats(ctx context.Context, userID string, limit int) ([]store.Chat, error)
	AddUsage(ctx context.Context, userID, chatID string, tokens int64) error
	UpdateChatTitle(ctx context.Context, userID, chatID, title string) error
}

// ConversationCache holds the raw sliding windows. Implemented by
// store.RedisCache.
type ConversationCache interface {
	PushTurn(ctx context.Context, userID, chatID string, payload []byte, maxLen int64, ttl time.Duration) error
	RecentTurns(ctx context.Context, userID, chatID string, limit int64) ([][]byte, error)
}

// ModelCache persists serialized ranker models with expiry. Implemented by
// store.RedisCache.
type ModelCache interface {
	GetModel(ctx context.Context, userID string) ([]byte, error)
	SetModel(ctx context.Context, userID string, data []byte, ttl time.Duration) error
}

// PassageRetriever is what the pipeline sees of retrieval. Retrieval never
// fails the request; it degrades to an empty passage list.
type PassageRetriever interface {
	Retrieve(ctx context.Context, userID, query string, topK int) []string
}
