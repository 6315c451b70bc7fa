package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrCrossTenant is returned when a chat id exists but belongs to a different
// user than the requester. Callers must treat this as a hard failure, never
// reassign or recreate the chat.
var ErrCrossTenant = errors.New("chat belongs to a different user")

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        user_id TEXT PRIMARY KEY,
        username TEXT NOT NULL DEFAULT '',
        email TEXT NOT NULL DEFAULT '',
        tokens_used INTEGER NOT NULL DEFAULT 0,
        is_guest BOOLEAN NOT NULL DEFAULT TRUE,
        guest_token_limit INTEGER NOT NULL DEFAULT 3000,
        is_paid_user BOOLEAN NOT NULL DEFAULT FALSE,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS chats (
        chat_id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        title TEXT NOT NULL DEFAULT 'New Chat',
        chat_tokens_used INTEGER NOT NULL DEFAULT 0,
        chat_token_limit INTEGER NOT NULL DEFAULT 30000,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (user_id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// GetOrCreateUser returns the user record for userID, creating it with the
// default counters on first reference. Guest users get placeholder
// username/email derived from their id.
func (s *SQLiteStore) GetOrCreateUser(ctx context.Context, userID string, isGuest bool) (*User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	username := ""
	email := ""
	if isGuest {
		suffix := userID
		if len(suffix) > 8 {
			suffix = suffix[len(suffix)-8:]
		}
		username = "Guest_" + suffix
		email = userID + "@guest.local"
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, username, email, tokens_used, is_guest, guest_token_limit, is_paid_user, created_at)
         VALUES (?, ?, ?, 0, ?, 3000, FALSE, ?)
         ON CONFLICT (user_id) DO NOTHING`,
		userID, username, email, isGuest, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return s.getUser(ctx, userID)
}

func (s *SQLiteStore) getUser(ctx context.Context, userID string) (*User, error) {
	var user User
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, username, email, tokens_used, is_guest, guest_token_limit, is_paid_user, created_at
         FROM users WHERE user_id = ?`, userID).
		Scan(&user.UserID, &user.Username, &user.Email, &user.TokensUsed, &user.IsGuest,
			&user.GuestTokenLimit, &user.IsPaidUser, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// GetOrCreateChat returns the chat record for (userID, chatID), creating it
// on first reference. If the chat exists under a different owner the call
// fails with ErrCrossTenant.
func (s *SQLiteStore) GetOrCreateChat(ctx context.Context, userID, chatID string) (*Chat, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat != nil {
		if chat.UserID != userID {
			return nil, fmt.Errorf("chat %s requested by user %s: %w", chatID, userID, ErrCrossTenant)
		}
		return chat, nil
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chats (chat_id, user_id, title, chat_tokens_used, chat_token_limit, created_at, updated_at)
         VALUES (?, ?, 'New Chat', 0, 30000, ?, ?)
         ON CONFLICT (chat_id) DO NOTHING`,
		chatID, userID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat: %w", err)
	}

	chat, err = s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, fmt.Errorf("chat %s missing after insert", chatID)
	}
	// A concurrent request may have created the chat for another user
	// between our read and insert.
	if chat.UserID != userID {
		return nil, fmt.Errorf("chat %s requested by user %s: %w", chatID, userID, ErrCrossTenant)
	}
	return chat, nil
}

func (s *SQLiteStore) getChat(ctx context.Context, chatID string) (*Chat, error) {
	var chat Chat
	err := s.db.QueryRowContext(ctx,
		`SELECT chat_id, user_id, title, chat_tokens_used, chat_token_limit, created_at, updated_at
         FROM chats WHERE chat_id = ?`, chatID).
		Scan(&chat.ChatID, &chat.UserID, &chat.Title, &chat.ChatTokensUsed,
			&chat.ChatTokenLimit, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &chat, nil
}

// ListChats returns the user's chats, most recently updated first.
func (s *SQLiteStore) ListChats(ctx context.Context, userID string, limit int) ([]Chat, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, user_id, title, chat_tokens_used, chat_token_limit, created_at, updated_at
         FROM chats WHERE user_id = ? ORDER BY updated_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(&chat.ChatID, &chat.UserID, &chat.Title, &chat.ChatTokensUsed,
			&chat.ChatTokenLimit, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// AddUsage increments the user's and the chat's token counters as one
// transaction. Both updates are expressed as relative "add N" statements so
// concurrent requests never lose increments to a read-modify-write race.
func (s *SQLiteStore) AddUsage(ctx context.Context, userID, chatID string, tokens int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin usage transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET tokens_used = tokens_used + ? WHERE user_id = ?`, tokens, userID)
	if err != nil {
		return fmt.Errorf("failed to update user tokens: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s not found, usage not recorded", userID)
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE chats SET chat_tokens_used = chat_tokens_used + ?, updated_at = ?
         WHERE user_id = ? AND chat_id = ?`, tokens, time.Now().UTC(), userID, chatID)
	if err != nil {
		return fmt.Errorf("failed to update chat tokens: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("chat %s not found for user %s, usage not recorded", chatID, userID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit usage transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateChatTitle(ctx context.Context, userID, chatID, title string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET title = ? WHERE chat_id = ? AND user_id = ?`, title, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to execute chat title update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("chat not found or not owned by user, title not updated")
	}
	return nil
}
