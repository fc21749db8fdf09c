package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	contractx "github.com/nguyentrungtung/sitebuilder-agent/agent/contract"
)

// ConversationEntry is one persisted message of a conversation. Entries are
// append-only; the only delete path is the time-based retention sweep.
type ConversationEntry struct {
	bun.BaseModel `bun:"table:conversation_history,alias:ch"`

	ID        uuid.UUID         `bun:"id,pk,type:uuid"`
	TenantID  string            `bun:"tenant_id,notnull"`
	UserID    string            `bun:"user_id,notnull"`
	SessionID string            `bun:"session_id,notnull"`
	Role      contractx.Role    `bun:"role,notnull"`
	Content   string            `bun:"content,notnull"`
	Metadata  map[string]string `bun:"metadata,type:jsonb"`
	CreatedAt time.Time         `bun:"created_at,notnull"`
}
