package store

import "time"

type User struct {
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	TokensUsed      int64     `json:"tokens_used"`
	IsGuest         bool      `json:"is_guest"`
	GuestTokenLimit int64     `json:"guest_token_limit"`
	IsPaidUser      bool      `json:"is_paid_user"`
	CreatedAt       time.Time `json:"created_at"`
}

type Chat struct {
	ChatID         string    `json:"chat_id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	ChatTokensUsed int64     `json:"chat_tokens_used"`
	ChatTokenLimit int64     `json:"chat_token_limit"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Turn is one entry in a conversation's sliding window.
type Turn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
