package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/mirrorhq/mirror/internal/adapter/store"
	"github.com/mirrorhq/mirror/internal/domain"
	"github.com/mirrorhq/mirror/internal/middleware"
	"github.com/mirrorhq/mirror/internal/service"
)

// ChatHandler handles conversational queries over the user's stored content.
type ChatHandler struct {
	chat  *service.ChatService
	store *store.PostgresStore
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService, pgStore *store.PostgresStore) *ChatHandler {
	return &ChatHandler{chat: chat, store: pgStore}
}

// Register sets up the authenticated chat route.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Post("/chat", h.Chat)
}

// RegisterPublic sets up the unauthenticated chat route used by embedded
// widgets. The caller identifies the owner explicitly in the body.
func (h *ChatHandler) RegisterPublic(router fiber.Router) {
	router.Post("/public/chat", h.PublicChat)
}

// Chat answers a message for the authenticated user, persisting both sides
// of the exchange in a conversation.
func (h *ChatHandler) Chat(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var body struct {
		Message        string `json:"message"`
		ConversationID string `json:"conversation_id"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	return h.respond(c, uc.UserID, body.Message, body.ConversationID)
}

// PublicChat answers a message for the owner named in the body.
func (h *ChatHandler) PublicChat(c fiber.Ctx) error {
	var body struct {
		UserID         string `json:"user_id"`
		Content        string `json:"content"`
		ConversationID string `json:"conversation_id"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if strings.TrimSpace(body.UserID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
	}

	return h.respond(c, body.UserID, body.Content, body.ConversationID)
}

func (h *ChatHandler) respond(c fiber.Ctx, ownerID, message, conversationID string) error {
	if strings.TrimSpace(message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "message is required"})
	}

	conv, err := h.conversation(c.Context(), ownerID, conversationID)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	if _, err := h.store.AddMessage(c.Context(), conv.ID, message, false); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	chatCtx, cancel := context.WithTimeout(c.Context(), 2*time.Minute)
	defer cancel()

	answer, err := h.chat.Answer(chatCtx, ownerID, message)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	// The user's question is already saved; failing the request now would
	// drop an answer we have. Log and return it anyway.
	if _, err := h.store.AddMessage(context.WithoutCancel(c.Context()), conv.ID, answer, true); err != nil {
		slog.Error("failed to persist assistant message", "conversation_id", conv.ID, "error", err)
	}

	details, _ := json.Marshal(fiber.Map{"conversation_id": conv.ID})
	if writeErr := h.store.WriteAudit(ownerID, domain.AuditActionChat, "conversation", conv.ID,
		string(details), c.IP(), c.Get("User-Agent")); writeErr != nil {
		slog.Error("failed to write audit log", "error", writeErr)
	}

	return c.JSON(fiber.Map{
		"response":        answer,
		"conversation_id": conv.ID,
	})
}

func (h *ChatHandler) conversation(ctx context.Context, ownerID, conversationID string) (*domain.Conversation, error) {
	if conversationID == "" {
		return h.store.CreateConversation(ctx, ownerID)
	}
	return h.store.GetConversation(ctx, conversationID, ownerID)
}
