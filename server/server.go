// Package server is the thin HTTP transport over the dispatcher. It enforces
// the validation preconditions so invalid requests never reach the core.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	contractx "github.com/nguyentrungtung/sitebuilder-agent/agent/contract"
)

const maxInputLength = 10000
const maxRequestBodySize = 1 << 20

// Agent handles one chat request end to end.
type Agent interface {
	Handle(ctx context.Context, req contractx.AgentRequest) contractx.AgentResponse
}

// Maintenance exposes the retention sweep to the admin surface.
type Maintenance interface {
	CleanupOldConversations(ctx context.Context, tenantID string, cutoff time.Time)
}

type ChatRequest struct {
	Input     string         `json:"input"`
	UserID    string         `json:"userId"`
	SessionID string         `json:"sessionId"`
	TenantID  string         `json:"tenantId"`
	Context   map[string]any `json:"context,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type ChatResponse struct {
	Response string                   `json:"response"`
	Status   contractx.ResponseStatus `json:"status"`
}

type CleanupRequest struct {
	TenantID      string `json:"tenantId"`
	RetentionDays int    `json:"retentionDays"`
}

// NewHandler builds the chi router for the agent API.
func NewHandler(agent Agent, maintenance Maintenance, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", handleChat(agent, logger))
		r.Post("/admin/cleanup", handleCleanup(maintenance, logger))
	})

	return r
}

func handleChat(agent Agent, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if msg := validateChatRequest(req); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		resp := agent.Handle(r.Context(), contractx.AgentRequest{
			UserID:    strings.TrimSpace(req.UserID),
			SessionID: strings.TrimSpace(req.SessionID),
			TenantID:  strings.TrimSpace(req.TenantID),
			Input:     req.Input,
			Context:   req.Context,
			Metadata:  req.Metadata,
		})

		writeJSON(w, http.StatusOK, ChatResponse{
			Response: resp.Output,
			Status:   resp.Status,
		})
	}
}

func handleCleanup(maintenance Maintenance, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CleanupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.TenantID) == "" {
			writeError(w, http.StatusBadRequest, "tenantId is required")
			return
		}
		if req.RetentionDays <= 0 {
			writeError(w, http.StatusBadRequest, "retentionDays must be positive")
			return
		}

		cutoff := time.Now().UTC().AddDate(0, 0, -req.RetentionDays)
		logger.Info().
			Str("tenant_id", req.TenantID).
			Time("cutoff", cutoff).
			Msg("starting retention sweep")
		maintenance.CleanupOldConversations(r.Context(), strings.TrimSpace(req.TenantID), cutoff)

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

func validateChatRequest(req ChatRequest) string {
	if strings.TrimSpace(req.Input) == "" {
		return "input is required"
	}
	if len(req.Input) > maxInputLength {
		return "input content too long"
	}
	if strings.TrimSpace(req.UserID) == "" {
		return "userId is required"
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return "sessionId is required"
	}
	if strings.TrimSpace(req.TenantID) == "" {
		return "tenantId is required"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
