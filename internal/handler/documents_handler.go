package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/mirrorhq/mirror/internal/domain"
	"github.com/mirrorhq/mirror/internal/middleware"
	"github.com/mirrorhq/mirror/internal/port"
)

// DocumentsHandler exposes the user's stored documents.
type DocumentsHandler struct {
	docs     port.DocumentStore
	embedder port.Embedder
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(docs port.DocumentStore, embedder port.Embedder) *DocumentsHandler {
	return &DocumentsHandler{docs: docs, embedder: embedder}
}

// Register sets up document routes.
func (h *DocumentsHandler) Register(router fiber.Router) {
	docs := router.Group("/documents")
	docs.Get("/", h.List)
	docs.Get("/search", h.Search)
}

// List returns the user's documents as full reconstructed text, ordered
// oldest to newest, optionally filtered by source.
func (h *DocumentsHandler) List(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	src := domain.Source(c.Query("source", ""))
	if src != "" && !src.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown source"})
	}

	texts, err := h.docs.DocumentsText(c.Context(), uc.UserID, src)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"documents": texts,
		"count":     len(texts),
	})
}

// Search runs a vector similarity search over the user's chunks.
func (h *DocumentsHandler) Search(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "q is required"})
	}
	k, _ := strconv.Atoi(c.Query("k", "10"))
	if k <= 0 || k > 100 {
		k = 10
	}

	queryVec, err := h.embedder.Embed(c.Context(), query)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	results, err := h.docs.SearchSimilar(c.Context(), uc.UserID, queryVec, k)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"results": results,
		"count":   len(results),
	})
}
