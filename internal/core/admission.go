package core

import "github.com/awais7012/Generative-AI/internal/store"

const (
	ActionSignup          = "signup"
	ActionUpgrade         = "upgrade"
	ActionNewConversation = "new_conversation"
)

// LimitPolicy holds the baseline usage limits. Per-record limits on the user
// (guest) and chat rows take precedence when set.
type LimitPolicy struct {
	GuestTokenLimit int64
	FreeTokenLimit  int64
	ChatTokenLimit  int64
}

// CheckAdmission evaluates the decision table in order; the first applicable
// rule governs. Counters are read as they stood before the request: a request
// is admitted if prior usage is under the limit, even if it will push usage
// over.
func CheckAdmission(user *store.User, chat *store.Chat, policy LimitPolicy) *AdmissionError {
	switch {
	case user.IsGuest:
		limit := user.GuestTokenLimit
		if limit <= 0 {
			limit = policy.GuestTokenLimit
		}
		if user.TokensUsed >= limit {
			return &AdmissionError{
				Message:    "You've used all your free tokens. Please sign up to continue!",
				Action:     ActionSignup,
				TokensUsed: user.TokensUsed,
				TokenLimit: limit,
			}
		}
	case !user.IsPaidUser:
		if user.TokensUsed >= policy.FreeTokenLimit {
			return &AdmissionError{
				Message:    "Free user token limit exceeded. Please upgrade to continue!",
				Action:     ActionUpgrade,
				TokensUsed: user.TokensUsed,
				TokenLimit: policy.FreeTokenLimit,
			}
		}
	default:
		// Paid users are never denied at the tenant level.
	}

	chatLimit := chat.ChatTokenLimit
	if chatLimit <= 0 {
		chatLimit = policy.ChatTokenLimit
	}
	if chat.ChatTokensUsed >= chatLimit {
		return &AdmissionError{
			Message:    "This conversation has reached its limit. Please start a new chat.",
			Action:     ActionNewConversation,
			TokensUsed: chat.ChatTokensUsed,
			TokenLimit: chatLimit,
		}
	}
	return nil
}

// UserTokensRemaining returns the user's remaining budget clipped at zero,
// or nil for paid users, whose budget is unlimited.
func UserTokensRemaining(user *store.User, policy LimitPolicy) *int64 {
	var limit int64
	switch {
	case user.IsGuest:
		limit = user.GuestTokenLimit
		if limit <= 0 {
			limit = policy.GuestTokenLimit
		}
	case !user.IsPaidUser:
		limit = policy.FreeTokenLimit
	default:
		return nil
	}
	remaining := limit - user.TokensUsed
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// ChatTokensRemaining returns the chat's remaining budget clipped at zero.
func ChatTokensRemaining(chat *store.Chat, policy LimitPolicy) int64 {
	limit := chat.ChatTokenLimit
	if limit <= 0 {
		limit = policy.ChatTokenLimit
	}
	remaining := limit - chat.ChatTokensUsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}
