package handlers

import (
	"context"
	"net/http"

	"github.com/dvloznov/lifeos/internal/api/middleware"
	"github.com/dvloznov/lifeos/internal/domain"
)

// ChatReplier is satisfied by *pipeline.ChatService.
type ChatReplier interface {
	Reply(ctx context.Context, ownerID string, messages []domain.ChatMessage) (string, error)
}

// ChatHandler handles POST /api/chat.
type ChatHandler struct {
	chat ChatReplier
}

func NewChatHandler(chat ChatReplier) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []domain.ChatMessage `json:"messages"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reply, err := h.chat.Reply(r.Context(), middleware.OwnerFromContext(r.Context()), req.Messages)
	if err != nil {
		writeFailure(w, r, err, "Failed to process chat")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status":   middleware.StatusSuccess,
		"response": reply,
	})
}
