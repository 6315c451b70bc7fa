package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultChatModelName      = "gemini-1.5-flash-latest"
	defaultEmbeddingModelName = "text-embedding-004"
	defaultTitleModelName     = "gemini-1.5-flash-latest"

	enhancerInstruction = "You are a prompt enhancer. Enhance the following prompt: %s. " +
		"Make it more descriptive and add details, without changing the meaning. " +
		"Also: fix grammar and spelling."

	titleSystemInstruction = "You are a helpful assistant that generates concise titles for chat conversations. " +
		"The title should be 3-5 words maximum. Just return the title itself, nothing else."
)

// LLMService wraps the Gemini client behind the Embedder, TokenCounter and
// LLM contracts. Every call carries a bounded timeout.
type LLMService struct {
	client  *genai.Client
	timeout time.Duration
}

func NewLLMService(apiKey string, timeout time.Duration) (*LLMService, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &LLMService{client: client, timeout: timeout}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

func (s *LLMService) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	em := s.client.EmbeddingModel(defaultEmbeddingModelName)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

func (s *LLMService) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	em := s.client.EmbeddingModel(defaultEmbeddingModelName)
	batch := em.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}
	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embedding request failed: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(res.Embeddings))
	}
	out := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

func (s *LLMService) CountTokens(ctx context.Context, text string) (int32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := s.client.GenerativeModel(defaultChatModelName)
	resp, err := model.CountTokens(ctx, genai.Text(text))
	if err != nil {
		return 0, fmt.Errorf("gemini token count failed: %w", err)
	}
	return resp.TotalTokens, nil
}

// Enhance rewrites the raw prompt to be clearer and better specified without
// changing its meaning.
func (s *LLMService) Enhance(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := s.client.GenerativeModel(defaultChatModelName)
	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(enhancerInstruction, prompt)))
	if err != nil {
		return "", fmt.Errorf("gemini prompt enhancement failed: %w", err)
	}
	text, err := extractText(resp)
	if err != nil {
		return "", fmt.Errorf("prompt enhancement produced no text: %w", err)
	}
	return text, nil
}

// Complete answers a fully assembled generation prompt.
func (s *LLMService) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := s.client.GenerativeModel(defaultChatModelName)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	text, err := extractText(resp)
	if err != nil {
		return "", fmt.Errorf("generation produced no text: %w", err)
	}
	return text, nil
}

func (s *LLMService) GenerateTitle(ctx context.Context, basis string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := s.client.GenerativeModel(defaultTitleModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(titleSystemInstruction)},
	}

	temp := float32(0.3)
	maxTokens := int32(20)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
	}

	prompt := fmt.Sprintf("Generate a very concise title (3-5 words maximum) for a conversation that starts with or is about: \"%s\".", basis)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini title generation request failed: %w", err)
	}
	text, err := extractText(resp)
	if err != nil {
		return "Chat", fmt.Errorf("LLM did not generate a title: %w", err)
	}
	return strings.Trim(text, "\"'\n\r\t ."), nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("response contained no text parts")
	}
	return b.String(), nil
}
