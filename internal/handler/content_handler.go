package handler

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/mirrorhq/mirror/internal/adapter/source"
	"github.com/mirrorhq/mirror/internal/domain"
	"github.com/mirrorhq/mirror/internal/middleware"
	"github.com/mirrorhq/mirror/internal/port"
	"github.com/mirrorhq/mirror/internal/service"
)

// ContentHandler handles content submission and ingestion.
type ContentHandler struct {
	content *service.ContentService
	ingest  *service.IngestService
	notion  *source.NotionFetcher // nil when Notion is not configured
	audit   middleware.AuditWriter
}

// NewContentHandler creates a new content handler.
func NewContentHandler(content *service.ContentService, ingest *service.IngestService, notion *source.NotionFetcher, audit middleware.AuditWriter) *ContentHandler {
	return &ContentHandler{content: content, ingest: ingest, notion: notion, audit: audit}
}

// Register sets up content routes.
func (h *ContentHandler) Register(router fiber.Router) {
	content := router.Group("/content")
	content.Post("/", h.Submit)
	content.Post("/notion/sync", h.SyncNotion)
}

// Submit expands URLs in the submitted text and ingests the result.
func (h *ContentHandler) Submit(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	expanded, src := h.content.Expand(c.Context(), body.Text)

	docID, err := h.ingest.Ingest(c.Context(), uc.UserID, src, expanded)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if docID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "empty content"})
	}

	h.writeAudit(c, uc.UserID, docID, src)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"document_id": docID,
		"source":      src,
	})
}

// SyncNotion ingests every page of the configured Notion database as a
// separate document. Pages that fail are skipped, not fatal.
func (h *ContentHandler) SyncNotion(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	if h.notion == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "notion is not configured"})
	}

	pages, err := h.notion.DatabasePages(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "notion fetch failed: " + err.Error()})
	}

	ingested := make([]string, 0, len(pages))
	var failed int
	for _, page := range pages {
		text := page.Title + "\n\n" + page.Text
		docID, err := h.ingest.Ingest(c.Context(), uc.UserID, domain.SourceNotion, text)
		if err != nil {
			slog.Warn("notion page ingest failed", "page_id", page.PageID, "error", err)
			failed++
			continue
		}
		if docID != "" {
			ingested = append(ingested, docID)
		}
	}

	for _, docID := range ingested {
		h.writeAudit(c, uc.UserID, docID, domain.SourceNotion)
	}

	return c.JSON(fiber.Map{
		"ingested": len(ingested),
		"failed":   failed,
		"ids":      ingested,
	})
}

func (h *ContentHandler) writeAudit(c fiber.Ctx, userID, docID string, src domain.Source) {
	details, _ := json.Marshal(fiber.Map{"source": src})
	if err := h.audit.WriteAudit(userID, domain.AuditActionIngest, "document", docID,
		string(details), c.IP(), c.Get("User-Agent")); err != nil {
		slog.Error("failed to write audit log", "error", err)
	}
}

// statusFor maps service error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, port.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, port.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, port.ErrEmbeddingUnavailable),
		errors.Is(err, port.ErrRankingUnavailable),
		errors.Is(err, port.ErrGenerationUnavailable),
		errors.Is(err, port.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
