package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/awais7012/Generative-AI/internal/auth"
	"github.com/awais7012/Generative-AI/internal/core"
	"github.com/awais7012/Generative-AI/internal/store"
	"github.com/google/uuid"
)

type contextKey string

const identityKey contextKey = "identity"

type APIHandler struct {
	pipeline *core.Pipeline
	ingest   *core.IngestService
}

func NewAPIHandler(pipeline *core.Pipeline, ingest *core.IngestService) *APIHandler {
	return &APIHandler{pipeline: pipeline, ingest: ingest}
}

// IdentityMiddleware resolves the requester (registered id from upstream
// auth, or a guest id) and echoes freshly minted guest ids back in the
// X-Guest-ID response header.
func (h *APIHandler) IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := auth.Resolve(r)
		if identity.Minted {
			w.Header().Set("X-Guest-ID", identity.UserID)
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIdentity(r *http.Request) auth.Identity {
	return r.Context().Value(identityKey).(auth.Identity)
}

type QueryRequest struct {
	Prompt string `json:"prompt"`
	ChatID string `json:"chat_id"`
}

type QueryResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id"`
	ChatID  string `json:"chat_id"`
	IsGuest bool   `json:"is_guest"`
	*core.AnswerResult
}

func (h *APIHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	identity := requestIdentity(r)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), "")
		return
	}

	result, err := h.pipeline.Answer(r.Context(), core.AnswerRequest{
		UserID:  identity.UserID,
		ChatID:  req.ChatID,
		Prompt:  req.Prompt,
		IsGuest: identity.IsGuest,
	})
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Success:      true,
		UserID:       identity.UserID,
		ChatID:       req.ChatID,
		IsGuest:      identity.IsGuest,
		AnswerResult: result,
	})
}

type StatusResponse struct {
	UserID              string `json:"user_id"`
	Username            string `json:"username"`
	IsGuest             bool   `json:"is_guest"`
	IsPaidUser          bool   `json:"is_paid_user"`
	TokensUsed          int64  `json:"tokens_used"`
	UserTokensRemaining *int64 `json:"user_tokens_remaining"`
	ChatID              string `json:"chat_id,omitempty"`
	ChatTokensUsed      int64  `json:"chat_tokens_used,omitempty"`
	ChatTokensRemaining *int64 `json:"chat_tokens_remaining,omitempty"`
}

func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	identity := requestIdentity(r)
	chatID := r.URL.Query().Get("chat_id")

	user, chat, err := h.pipeline.Status(r.Context(), identity.UserID, identity.IsGuest, chatID)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	resp := StatusResponse{
		UserID:              user.UserID,
		Username:            user.Username,
		IsGuest:             user.IsGuest,
		IsPaidUser:          user.IsPaidUser,
		TokensUsed:          user.TokensUsed,
		UserTokensRemaining: core.UserTokensRemaining(user, h.pipeline.Policy()),
	}
	if chat != nil {
		remaining := core.ChatTokensRemaining(chat, h.pipeline.Policy())
		resp.ChatID = chat.ChatID
		resp.ChatTokensUsed = chat.ChatTokensUsed
		resp.ChatTokensRemaining = &remaining
	}
	writeJSON(w, http.StatusOK, resp)
}

type NewChatRequest struct {
	Title string `json:"title"`
}

func (h *APIHandler) NewChatHandler(w http.ResponseWriter, r *http.Request) {
	identity := requestIdentity(r)

	// An empty body means no overrides, not a malformed request
	var req NewChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), "")
		return
	}

	chatID := "chat_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	chat, err := h.pipeline.CreateChat(r.Context(), identity.UserID, identity.IsGuest, chatID, req.Title)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"chat_id":  chat.ChatID,
		"title":    chat.Title,
		"user_id":  identity.UserID,
		"is_guest": identity.IsGuest,
	})
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	identity := requestIdentity(r)

	chats, err := h.pipeline.ListChats(r.Context(), identity.UserID, identity.IsGuest, 20)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": identity.UserID,
		"chats":   chats,
		"total":   len(chats),
	})
}

type IngestRequest struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

func (h *APIHandler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	identity := requestIdentity(r)

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), "")
		return
	}
	if strings.TrimSpace(req.Filename) == "" || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "filename and text are required", "")
		return
	}

	count, err := h.ingest.IngestText(r.Context(), identity.UserID, req.Filename, req.Text)
	if err != nil {
		log.Printf("Ingestion failed for user %s file %s: %v", identity.UserID, req.Filename, err)
		writeError(w, http.StatusInternalServerError, "Failed to ingest document", "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"filename": req.Filename,
		"chunks":   count,
	})
}

func (h *APIHandler) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var admission *core.AdmissionError
	var validation *core.ValidationError
	var upstream *core.UpstreamError

	switch {
	case errors.As(err, &admission):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"success": false,
			"error":   admission,
		})
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message, validation.Field)
	case errors.Is(err, store.ErrCrossTenant):
		writeError(w, http.StatusForbidden, "Chat does not belong to this user", "")
	case errors.As(err, &upstream):
		log.Printf("Upstream failure on %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusBadGateway, "Upstream model call failed", "")
	default:
		log.Printf("Request failed on %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "Failed to process request", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, field string) {
	body := map[string]any{
		"success": false,
		"error":   map[string]string{"message": message},
	}
	if field != "" {
		body["error"].(map[string]string)["field"] = field
	}
	writeJSON(w, status, body)
}
