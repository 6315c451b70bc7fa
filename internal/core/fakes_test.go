package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/awais7012/Generative-AI/internal/index"
	"github.com/awais7012/Generative-AI/internal/store"
)

type fakeEmbedder struct {
	EmbedOneFn  func(ctx context.Context, text string) ([]float32, error)
	EmbedManyFn func(ctx context.Context, texts []string) ([][]float32, error)
}

func (f *fakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if f.EmbedOneFn != nil {
		return f.EmbedOneFn(ctx, text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if f.EmbedManyFn != nil {
		return f.EmbedManyFn(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type fakeCounter struct {
	CountTokensFn func(ctx context.Context, text string) (int32, error)
}

func (f *fakeCounter) CountTokens(ctx context.Context, text string) (int32, error) {
	if f.CountTokensFn != nil {
		return f.CountTokensFn(ctx, text)
	}
	return 0, errors.New("tokenizer unavailable")
}

type fakeLLM struct {
	EnhanceFn  func(ctx context.Context, prompt string) (string, error)
	CompleteFn func(ctx context.Context, prompt string) (string, error)
	TitleFn    func(ctx context.Context, basis string) (string, error)

	lastGenerationPrompt string
}

func (f *fakeLLM) Enhance(ctx context.Context, prompt string) (string, error) {
	if f.EnhanceFn != nil {
		return f.EnhanceFn(ctx, prompt)
	}
	return "enhanced: " + prompt, nil
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.lastGenerationPrompt = prompt
	if f.CompleteFn != nil {
		return f.CompleteFn(ctx, prompt)
	}
	return "the answer", nil
}

func (f *fakeLLM) GenerateTitle(ctx context.Context, basis string) (string, error) {
	if f.TitleFn != nil {
		return f.TitleFn(ctx, basis)
	}
	return "Test Chat", nil
}

// fakeIndex keeps upserted vectors per namespace and serves them back as
// matches with preset scores.
type fakeIndex struct {
	mu      sync.Mutex
	vectors map[string][]index.Vector
	scores  map[string]float64 // by vector id; default 1.0

	QueryFn     func(ctx context.Context, namespace string, dense []float32, sparseVec *index.SparseValues, topK int, filter map[string]any) ([]index.Match, error)
	ListTextsFn func(ctx context.Context, namespace string, limit int) ([]string, error)
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		vectors: make(map[string][]index.Vector),
		scores:  make(map[string]float64),
	}
}

func (f *fakeIndex) Upsert(ctx context.Context, namespace string, vectors []index.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors[namespace] = append(f.vectors[namespace], vectors...)
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, namespace string, dense []float32, sparseVec *index.SparseValues, topK int, filter map[string]any) ([]index.Match, error) {
	if f.QueryFn != nil {
		return f.QueryFn(ctx, namespace, dense, sparseVec, topK, filter)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []index.Match
	for _, v := range f.vectors[namespace] {
		score, ok := f.scores[v.ID]
		if !ok {
			score = 1.0
		}
		matches = append(matches, index.Match{ID: v.ID, Score: score, Metadata: v.Metadata})
		if len(matches) == topK {
			break
		}
	}
	return matches, nil
}

func (f *fakeIndex) ListTexts(ctx context.Context, namespace string, limit int) ([]string, error) {
	if f.ListTextsFn != nil {
		return f.ListTextsFn(ctx, namespace, limit)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var texts []string
	for _, v := range f.vectors[namespace] {
		texts = append(texts, v.Metadata.Text)
		if len(texts) == limit {
			break
		}
	}
	return texts, nil
}

type fakeModelCache struct {
	mu     sync.Mutex
	models map[string][]byte

	GetModelFn func(ctx context.Context, userID string) ([]byte, error)
	SetModelFn func(ctx context.Context, userID string, data []byte, ttl time.Duration) error
}

func newFakeModelCache() *fakeModelCache {
	return &fakeModelCache{models: make(map[string][]byte)}
}

func (f *fakeModelCache) GetModel(ctx context.Context, userID string) ([]byte, error) {
	if f.GetModelFn != nil {
		return f.GetModelFn(ctx, userID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.models[userID], nil
}

func (f *fakeModelCache) SetModel(ctx context.Context, userID string, data []byte, ttl time.Duration) error {
	if f.SetModelFn != nil {
		return f.SetModelFn(ctx, userID, data, ttl)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models[userID] = data
	return nil
}

// fakeConvCache mirrors the Redis list semantics: push-front, trim, TTL
// ignored.
type fakeConvCache struct {
	mu      sync.Mutex
	windows map[string][][]byte

	PushTurnFn    func(ctx context.Context, userID, chatID string, payload []byte, maxLen int64, ttl time.Duration) error
	RecentTurnsFn func(ctx context.Context, userID, chatID string, limit int64) ([][]byte, error)
}

func newFakeConvCache() *fakeConvCache {
	return &fakeConvCache{windows: make(map[string][][]byte)}
}

func (f *fakeConvCache) key(userID, chatID string) string {
	return userID + ":" + chatID
}

func (f *fakeConvCache) PushTurn(ctx context.Context, userID, chatID string, payload []byte, maxLen int64, ttl time.Duration) error {
	if f.PushTurnFn != nil {
		return f.PushTurnFn(ctx, userID, chatID, payload, maxLen, ttl)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := f.key(userID, chatID)
	window := append([][]byte{payload}, f.windows[key]...)
	if int64(len(window)) > maxLen {
		window = window[:maxLen]
	}
	f.windows[key] = window
	return nil
}

func (f *fakeConvCache) RecentTurns(ctx context.Context, userID, chatID string, limit int64) ([][]byte, error) {
	if f.RecentTurnsFn != nil {
		return f.RecentTurnsFn(ctx, userID, chatID, limit)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	window := f.windows[f.key(userID, chatID)]
	if int64(len(window)) > limit {
		window = window[:limit]
	}
	out := make([][]byte, len(window))
	copy(out, window)
	return out, nil
}

// fakeUsageStore mirrors the SQLite store's semantics in memory, including
// cross-tenant detection and the all-or-nothing dual increment.
type fakeUsageStore struct {
	mu    sync.Mutex
	users map[string]*store.User
	chats map[string]*store.Chat

	AddUsageFn func(ctx context.Context, userID, chatID string, tokens int64) error
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{
		users: make(map[string]*store.User),
		chats: make(map[string]*store.Chat),
	}
}

func (f *fakeUsageStore) GetOrCreateUser(ctx context.Context, userID string, isGuest bool) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	u := &store.User{
		UserID:          userID,
		IsGuest:         isGuest,
		GuestTokenLimit: 3000,
		CreatedAt:       time.Now().UTC(),
	}
	f.users[userID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUsageStore) GetOrCreateChat(ctx context.Context, userID, chatID string) (*store.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.chats[chatID]; ok {
		if c.UserID != userID {
			return nil, fmt.Errorf("chat %s requested by user %s: %w", chatID, userID, store.ErrCrossTenant)
		}
		cp := *c
		return &cp, nil
	}
	now := time.Now().UTC()
	c := &store.Chat{
		ChatID:         chatID,
		UserID:         userID,
		Title:          "New Chat",
		ChatTokenLimit: 30000,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.chats[chatID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeUsageStore) ListChats(ctx context.Context, userID string, limit int) ([]store.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var chats []store.Chat
	for _, c := range f.chats {
		if c.UserID == userID {
			chats = append(chats, *c)
		}
	}
	return chats, nil
}

func (f *fakeUsageStore) AddUsage(ctx context.Context, userID, chatID string, tokens int64) error {
	if f.AddUsageFn != nil {
		return f.AddUsageFn(ctx, userID, chatID, tokens)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	c, ok := f.chats[chatID]
	if !ok || c.UserID != userID {
		return errors.New("chat not found")
	}
	u.TokensUsed += tokens
	c.ChatTokensUsed += tokens
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeUsageStore) UpdateChatTitle(ctx context.Context, userID, chatID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[chatID]
	if !ok || c.UserID != userID {
		return errors.New("chat not found")
	}
	c.Title = title
	return nil
}

// fakeRetriever returns a fixed passage list.
type fakeRetriever struct {
	passages []string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, userID, query string, topK int) []string {
	return f.passages
}
