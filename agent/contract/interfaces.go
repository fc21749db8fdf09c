package contract

import "context"

// Completer is the plain generation capability: one synchronous exchange,
// no tool use. An empty system text means a single-message prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ToolCompleter generates a reply with the registered tools advertised to the
// model. Tool selection and invocation happen inside this one call boundary.
type ToolCompleter interface {
	CompleteWithTools(ctx context.Context, system, user string) (string, error)
}

// Memory supplies and records conversational context. Both operations are
// best-effort: implementations must degrade instead of failing the request.
type Memory interface {
	RetrieveContext(ctx context.Context, sessionID, tenantID string) string
	SaveInteraction(ctx context.Context, req AgentRequest, aiResponse string)
}
