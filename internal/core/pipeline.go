package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/awais7012/Generative-AI/internal/store"
)

const generationPromptTemplate = "You are a world-class AI model. " +
	"Answer the question based only on the provided context. " +
	"If you don't know, say you don't know." +
	"\n\nContext:\n%s\n\nQuestion: %s"

const defaultChatTitle = "New Chat"

type AnswerRequest struct {
	UserID  string
	ChatID  string
	Prompt  string
	IsGuest bool
}

type AnswerResult struct {
	Answer              string `json:"answer"`
	TokensUsed          int64  `json:"tokens_used"`
	UserTokensRemaining *int64 `json:"user_tokens_remaining"` // nil means unlimited
	ChatTokensRemaining int64  `json:"chat_tokens_remaining"`
}

// Pipeline composes the end-to-end query flow: admission check, retrieval and
// context assembly, enhancement, generation, accounting, context append. The
// admission check runs before any retrieval or generation work so abusive or
// runaway usage is rejected before the expensive path is entered.
type Pipeline struct {
	usage      UsageStore
	contexts   *ContextStore
	retriever  PassageRetriever
	llm        LLM
	accountant *Accountant
	policy     LimitPolicy
	topK       int
}

func NewPipeline(usage UsageStore, contexts *ContextStore, retriever PassageRetriever, llm LLM, accountant *Accountant, policy LimitPolicy, topK int) *Pipeline {
	if topK <= 0 {
		topK = 5
	}
	return &Pipeline{
		usage:      usage,
		contexts:   contexts,
		retriever:  retriever,
		llm:        llm,
		accountant: accountant,
		policy:     policy,
		topK:       topK,
	}
}

// Answer runs one request through the pipeline. Denials and validation
// failures come back as typed errors; an answer that was already generated is
// delivered even if its accounting write fails.
func (p *Pipeline) Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, &ValidationError{Field: "prompt", Message: "prompt is required"}
	}
	if strings.TrimSpace(req.ChatID) == "" {
		return nil, &ValidationError{Field: "chat_id", Message: "chat_id is required"}
	}

	user, err := p.usage.GetOrCreateUser(ctx, req.UserID, req.IsGuest)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %s: %w", req.UserID, err)
	}
	chat, err := p.usage.GetOrCreateChat(ctx, req.UserID, req.ChatID)
	if err != nil {
		// Includes cross-tenant violations, which must never be corrected
		// silently.
		return nil, err
	}

	// Admission is a terminal decision: no retrieval, no generation, no side
	// effects on denial.
	if denial := CheckAdmission(user, chat, p.policy); denial != nil {
		return nil, denial
	}

	history, err := p.contexts.Recent(ctx, req.UserID, req.ChatID, 0)
	if err != nil {
		log.Printf("Failed to read chat history for chat %s, proceeding without it: %v", req.ChatID, err)
		history = ""
	}
	passages := p.retriever.Retrieve(ctx, req.UserID, req.Prompt, p.topK)

	enhanced, err := p.llm.Enhance(ctx, req.Prompt)
	if err != nil {
		return nil, &UpstreamError{Stage: "prompt enhancement", Err: err}
	}

	contextText := history
	if len(passages) > 0 {
		contextText = contextText + "\n\n" + strings.Join(passages, "\n\n")
	}
	answer, err := p.llm.Complete(ctx, fmt.Sprintf(generationPromptTemplate, contextText, enhanced))
	if err != nil {
		return nil, &UpstreamError{Stage: "generation", Err: err}
	}

	promptSide := enhanced + "\n\n" + contextText
	tokensUsed := p.accountant.Count(ctx, promptSide) + p.accountant.Count(ctx, answer)
	if err := p.accountant.Record(ctx, req.UserID, req.ChatID, tokensUsed); err != nil {
		// Rejecting a produced answer over a bookkeeping write would be worse
		// than slight under-counting.
		log.Printf("Accounting degraded for user %s chat %s: %v", req.UserID, req.ChatID, err)
	}

	if err := p.contexts.Append(ctx, req.UserID, req.ChatID, RoleUser, req.Prompt); err != nil {
		log.Printf("Failed to append user turn for chat %s: %v", req.ChatID, err)
	}
	if err := p.contexts.Append(ctx, req.UserID, req.ChatID, RoleAssistant, answer); err != nil {
		log.Printf("Failed to append assistant turn for chat %s: %v", req.ChatID, err)
	}

	if chat.Title == "" || chat.Title == defaultChatTitle {
		go p.generateAndSaveChatTitle(req.UserID, req.ChatID, req.Prompt)
	}

	// Remaining budgets reflect post-request usage, clipped at zero. The
	// admission check above deliberately used pre-request counters.
	userAfter := *user
	userAfter.TokensUsed += tokensUsed
	chatAfter := *chat
	chatAfter.ChatTokensUsed += tokensUsed

	return &AnswerResult{
		Answer:              answer,
		TokensUsed:          tokensUsed,
		UserTokensRemaining: UserTokensRemaining(&userAfter, p.policy),
		ChatTokensRemaining: ChatTokensRemaining(&chatAfter, p.policy),
	}, nil
}

// Status reports current usage and remaining budgets without running the
// pipeline.
func (p *Pipeline) Status(ctx context.Context, userID string, isGuest bool, chatID string) (*store.User, *store.Chat, error) {
	user, err := p.usage.GetOrCreateUser(ctx, userID, isGuest)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve user %s: %w", userID, err)
	}
	var chat *store.Chat
	if chatID != "" {
		chat, err = p.usage.GetOrCreateChat(ctx, userID, chatID)
		if err != nil {
			return nil, nil, err
		}
	}
	return user, chat, nil
}

// CreateChat creates a fresh conversation for the user, optionally titled.
func (p *Pipeline) CreateChat(ctx context.Context, userID string, isGuest bool, chatID, title string) (*store.Chat, error) {
	if _, err := p.usage.GetOrCreateUser(ctx, userID, isGuest); err != nil {
		return nil, fmt.Errorf("failed to resolve user %s: %w", userID, err)
	}
	chat, err := p.usage.GetOrCreateChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if title != "" && title != chat.Title {
		if err := p.usage.UpdateChatTitle(ctx, userID, chatID, title); err != nil {
			return nil, err
		}
		chat.Title = title
	}
	return chat, nil
}

// ListChats returns the user's conversations, most recently updated first.
func (p *Pipeline) ListChats(ctx context.Context, userID string, isGuest bool, limit int) ([]store.Chat, error) {
	if _, err := p.usage.GetOrCreateUser(ctx, userID, isGuest); err != nil {
		return nil, fmt.Errorf("failed to resolve user %s: %w", userID, err)
	}
	return p.usage.ListChats(ctx, userID, limit)
}

// Policy exposes the limits the pipeline admits against.
func (p *Pipeline) Policy() LimitPolicy {
	return p.policy
}

func (p *Pipeline) generateAndSaveChatTitle(userID, chatID, basisContent string) {
	ctx := context.Background()
	title, err := p.llm.GenerateTitle(ctx, basisContent)
	if err != nil {
		log.Printf("Failed to generate title for chat %s: %v", chatID, err)
		return
	}
	title = strings.Trim(title, "\"'\n\r\t .")
	if title == "" {
		return
	}
	if err := p.usage.UpdateChatTitle(ctx, userID, chatID, title); err != nil {
		log.Printf("Failed to save generated title %q for chat %s: %v", title, chatID, err)
	}
}
