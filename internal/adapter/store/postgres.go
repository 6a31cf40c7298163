package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mirrorhq/mirror/internal/domain"
	"github.com/mirrorhq/mirror/internal/port"
)

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%w: ping database: %v", port.ErrStorageUnavailable, err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// --- Conversations ---

// CreateConversation starts a new conversation for the owner.
func (s *PostgresStore) CreateConversation(ctx context.Context, ownerID string) (*domain.Conversation, error) {
	query := `INSERT INTO conversations (id, owner_id)
	          VALUES ($1, $2)
	          RETURNING id, owner_id, created_at, updated_at`

	var conv domain.Conversation
	err := s.db.QueryRowContext(ctx, query, uuid.NewString(), ownerID).Scan(
		&conv.ID, &conv.OwnerID, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create conversation: %v", port.ErrStorageUnavailable, err)
	}
	return &conv, nil
}

// GetConversation returns the conversation if it belongs to the owner.
func (s *PostgresStore) GetConversation(ctx context.Context, id, ownerID string) (*domain.Conversation, error) {
	query := `SELECT id, owner_id, created_at, updated_at
	          FROM conversations WHERE id = $1 AND owner_id = $2`

	var conv domain.Conversation
	err := s.db.QueryRowContext(ctx, query, id, ownerID).Scan(
		&conv.ID, &conv.OwnerID, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: conversation %s", port.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get conversation: %v", port.ErrStorageUnavailable, err)
	}
	return &conv, nil
}

// AddMessage appends a message to a conversation and bumps its updated_at.
func (s *PostgresStore) AddMessage(ctx context.Context, conversationID, content string, isBot bool) (*domain.Message, error) {
	query := `INSERT INTO messages (id, conversation_id, content, is_bot)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id, conversation_id, content, is_bot, created_at`

	var msg domain.Message
	err := s.db.QueryRowContext(ctx, query, uuid.NewString(), conversationID, content, isBot).Scan(
		&msg.ID, &msg.ConversationID, &msg.Content, &msg.IsBot, &msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: add message: %v", port.ErrStorageUnavailable, err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = NOW() WHERE id = $1`, conversationID); err != nil {
		return nil, fmt.Errorf("%w: touch conversation: %v", port.ErrStorageUnavailable, err)
	}
	return &msg, nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *PostgresStore) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	query := `SELECT id, conversation_id, content, is_bot, created_at
	          FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", port.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Content, &m.IsBot, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", port.ErrStorageUnavailable, err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// --- Audit ---

// WriteAudit persists one audit record. Implements middleware.AuditWriter.
func (s *PostgresStore) WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error {
	query := `INSERT INTO audit_logs (user_id, action, resource, resource_id, details, ip, user_agent)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.Exec(query, userID, action, resource, resourceID, details, ip, userAgent)
	if err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	return nil
}

// ListAuditLogs returns the most recent audit records for a user.
func (s *PostgresStore) ListAuditLogs(ctx context.Context, userID string, limit int) ([]domain.AuditLog, error) {
	query := `SELECT id, user_id, action, resource, resource_id, details, ip, user_agent, created_at
	          FROM audit_logs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list audit logs: %v", port.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var logs []domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.Resource, &l.ResourceID,
			&l.Details, &l.IP, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan audit log: %v", port.ErrStorageUnavailable, err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
