// Package memory is the gateway over conversation persistence: a relational
// history store and a semantic store, each optional and independently usable.
// Every operation degrades instead of failing the user-facing request.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	contractx "github.com/nguyentrungtung/sitebuilder-agent/agent/contract"
)

const contextTopK = 10

// HistoryStore is the relational backing store for conversation entries.
type HistoryStore interface {
	Append(ctx context.Context, entries ...*ConversationEntry) error
	History(ctx context.Context, sessionID, tenantID string) ([]*ConversationEntry, error)
	Count(ctx context.Context, sessionID, tenantID string) (int, error)
	DeleteBefore(ctx context.Context, tenantID string, cutoff time.Time) (int64, error)
}

// Document is the semantic store's unit of storage.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// SemanticStore is the vector-similarity backing store.
type SemanticStore interface {
	Add(ctx context.Context, docs []Document) error
	Search(ctx context.Context, sessionID, tenantID string, topK int) ([]Document, error)
}

// Gateway implements contract.Memory over the two optional stores.
type Gateway struct {
	history  HistoryStore
	semantic SemanticStore
	logger   zerolog.Logger

	now func() time.Time
}

var _ contractx.Memory = (*Gateway)(nil)

// NewGateway accepts nil for either store; a nil store is skipped with a
// warning on each operation that would use it.
func NewGateway(history HistoryStore, semantic SemanticStore, logger zerolog.Logger) *Gateway {
	return &Gateway{
		history:  history,
		semantic: semantic,
		logger:   logger,
		now:      time.Now,
	}
}

// SaveInteraction records one USER and one ASSISTANT entry in every available
// store. Storage faults are logged with full identity context and never
// surfaced: saving history must not fail the user-visible answer.
func (g *Gateway) SaveInteraction(ctx context.Context, req contractx.AgentRequest, aiResponse string) {
	if g.history != nil {
		if err := g.history.Append(ctx, g.buildEntries(req, aiResponse)...); err != nil {
			g.identityLog(zerolog.ErrorLevel, req.UserID, req.SessionID, req.TenantID).
				Err(err).
				Msg("failed to save interaction to history store")
		}
	} else {
		g.logger.Warn().Str("session_id", req.SessionID).Msg("history store not available, skipping conversation save")
	}

	if g.semantic != nil {
		if err := g.semantic.Add(ctx, g.buildDocuments(req, aiResponse)); err != nil {
			g.identityLog(zerolog.WarnLevel, req.UserID, req.SessionID, req.TenantID).
				Err(err).
				Msg("failed to save interaction to semantic store")
		}
	} else {
		g.logger.Warn().Str("session_id", req.SessionID).Msg("semantic store not available, skipping vector save")
	}

	g.identityLog(zerolog.InfoLevel, req.UserID, req.SessionID, req.TenantID).Msg("saved interaction")
}

// RetrieveContext returns prior conversation as "[role]: content" lines.
// Semantic store takes precedence when present; the relational history is the
// fallback; empty text when neither is available or on any error.
func (g *Gateway) RetrieveContext(ctx context.Context, sessionID, tenantID string) string {
	if g.semantic != nil {
		docs, err := g.semantic.Search(ctx, sessionID, tenantID, contextTopK)
		if err != nil {
			g.logger.Warn().Err(err).Str("session_id", sessionID).Msg("semantic context retrieval failed")
			return ""
		}
		lines := make([]string, 0, len(docs))
		for _, doc := range docs {
			lines = append(lines, fmt.Sprintf("[%s]: %s", doc.Metadata["role"], doc.Content))
		}
		return strings.Join(lines, "\n")
	}

	if g.history != nil {
		entries, err := g.history.History(ctx, sessionID, tenantID)
		if err != nil {
			g.logger.Warn().Err(err).Str("session_id", sessionID).Msg("history context retrieval failed")
			return ""
		}
		lines := make([]string, 0, len(entries))
		for _, entry := range entries {
			lines = append(lines, fmt.Sprintf("[%s]: %s", entry.Role, entry.Content))
		}
		return strings.Join(lines, "\n")
	}

	g.logger.Warn().Str("session_id", sessionID).Msg("no storage available for context retrieval")
	return ""
}

// SessionHistory returns the full ordered history for a session, or an empty
// slice when the history store is absent.
func (g *Gateway) SessionHistory(ctx context.Context, sessionID, tenantID string) []*ConversationEntry {
	if g.history == nil {
		g.logger.Warn().Str("session_id", sessionID).Msg("history store not available, returning empty history")
		return nil
	}
	entries, err := g.history.History(ctx, sessionID, tenantID)
	if err != nil {
		g.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to read session history")
		return nil
	}
	return entries
}

// SessionMessageCount counts entries for a session; zero when unavailable.
func (g *Gateway) SessionMessageCount(ctx context.Context, sessionID, tenantID string) int {
	if g.history == nil {
		return 0
	}
	count, err := g.history.Count(ctx, sessionID, tenantID)
	if err != nil {
		g.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to count session messages")
		return 0
	}
	return count
}

// CleanupOldConversations removes a tenant's entries created strictly before
// cutoff. A no-op when the history store is absent; failures are logged.
func (g *Gateway) CleanupOldConversations(ctx context.Context, tenantID string, cutoff time.Time) {
	if g.history == nil {
		return
	}
	deleted, err := g.history.DeleteBefore(ctx, tenantID, cutoff)
	if err != nil {
		g.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to clean up old conversations")
		return
	}
	g.logger.Info().
		Str("tenant_id", tenantID).
		Time("cutoff", cutoff).
		Int64("deleted", deleted).
		Msg("cleaned up old conversations")
}

func (g *Gateway) buildEntries(req contractx.AgentRequest, aiResponse string) []*ConversationEntry {
	now := g.now().UTC()

	userMetadata := baseMetadata(req, "user_input", now)
	userMetadata["input_length"] = strconv.Itoa(len(req.Input))
	userMetadata["request_type"] = classifyRequestType(req.Input)

	aiMetadata := baseMetadata(req, "ai_response", now)
	aiMetadata["response_length"] = strconv.Itoa(len(aiResponse))
	aiMetadata["processing_timestamp"] = now.Format(time.RFC3339Nano)

	return []*ConversationEntry{
		{
			ID:        uuid.New(),
			TenantID:  req.TenantID,
			UserID:    req.UserID,
			SessionID: req.SessionID,
			Role:      contractx.RoleUser,
			Content:   req.Input,
			Metadata:  userMetadata,
			CreatedAt: now,
		},
		{
			ID:        uuid.New(),
			TenantID:  req.TenantID,
			UserID:    req.UserID,
			SessionID: req.SessionID,
			Role:      contractx.RoleAssistant,
			Content:   aiResponse,
			Metadata:  aiMetadata,
			CreatedAt: now,
		},
	}
}

func (g *Gateway) buildDocuments(req contractx.AgentRequest, aiResponse string) []Document {
	now := g.now().UTC().Format(time.RFC3339Nano)
	return []Document{
		{
			ID:      uuid.NewString(),
			Content: req.Input,
			Metadata: map[string]string{
				"role":      string(contractx.RoleUser),
				"sessionId": req.SessionID,
				"tenantId":  req.TenantID,
				"userId":    req.UserID,
				"timestamp": now,
			},
		},
		{
			ID:      uuid.NewString(),
			Content: aiResponse,
			Metadata: map[string]string{
				"role":      string(contractx.RoleAssistant),
				"sessionId": req.SessionID,
				"tenantId":  req.TenantID,
				"userId":    req.UserID,
				"timestamp": now,
			},
		},
	}
}

func (g *Gateway) identityLog(level zerolog.Level, userID, sessionID, tenantID string) *zerolog.Event {
	return g.logger.WithLevel(level).
		Str("user_id", userID).
		Str("session_id", sessionID).
		Str("tenant_id", tenantID)
}

func baseMetadata(req contractx.AgentRequest, messageType string, now time.Time) map[string]string {
	metadata := map[string]string{
		"message_type": messageType,
		"tenant_id":    req.TenantID,
		"user_id":      req.UserID,
		"session_id":   req.SessionID,
		"timestamp":    now.Format(time.RFC3339Nano),
	}

	if len(req.Context) > 0 {
		keys := make([]string, 0, len(req.Context))
		for k := range req.Context {
			keys = append(keys, k)
		}
		metadata["has_context"] = "true"
		metadata["context_keys"] = strings.Join(keys, ",")
	}

	return metadata
}

// classifyRequestType derives a coarse request-type label by case-insensitive
// keyword matching. Stored as metadata only; never used for routing.
func classifyRequestType(input string) string {
	lower := strings.ToLower(input)
	switch {
	case strings.Contains(lower, "tạo") || strings.Contains(lower, "create"):
		return "creation_request"
	case strings.Contains(lower, "giá") || strings.Contains(lower, "price"):
		return "pricing_inquiry"
	case strings.Contains(lower, "template") || strings.Contains(lower, "mẫu"):
		return "template_inquiry"
	default:
		return "general_inquiry"
	}
}
