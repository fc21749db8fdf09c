package contract

// AgentRequest is the immutable inbound value handed to the dispatcher.
// It is created once per call by the transport layer and never mutated.
type AgentRequest struct {
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	TenantID  string         `json:"tenant_id"`
	Input     string         `json:"input"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// ResponseStatus is the terminal status of a handled request.
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "SUCCESS"
	StatusFailed  ResponseStatus = "FAILED"

	// StatusRequiresHumanIntervention is reserved for escalation logic;
	// no current workflow produces it.
	StatusRequiresHumanIntervention ResponseStatus = "REQUIRES_HUMAN_INTERVENTION"
)

// AgentResponse is the terminal value returned to the transport layer.
type AgentResponse struct {
	Output string         `json:"output"`
	Status ResponseStatus `json:"status"`
}

// Role tags a conversation entry.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
	RoleSystem    Role = "SYSTEM"
)

// Route is the closed set of workflow identifiers the router can produce.
type Route int

const (
	RouteOrchestration Route = iota
	RouteConsulting
)

// String returns the label used for observability and logging.
func (r Route) String() string {
	switch r {
	case RouteConsulting:
		return "workflow:chain:consulting"
	case RouteOrchestration:
		return "workflow:orchestration:default"
	default:
		return "workflow:unknown"
	}
}
