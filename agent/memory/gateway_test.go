package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/nguyentrungtung/sitebuilder-agent/agent/contract"
)

type fakeHistoryStore struct {
	entries   []*ConversationEntry
	appendErr error
	queryErr  error

	deletedTenant string
	deletedCutoff time.Time
	deleteErr     error
}

func (f *fakeHistoryStore) Append(_ context.Context, entries ...*ConversationEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeHistoryStore) History(_ context.Context, sessionID, tenantID string) ([]*ConversationEntry, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []*ConversationEntry
	for _, e := range f.entries {
		if e.SessionID == sessionID && e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeHistoryStore) Count(ctx context.Context, sessionID, tenantID string) (int, error) {
	entries, err := f.History(ctx, sessionID, tenantID)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (f *fakeHistoryStore) DeleteBefore(_ context.Context, tenantID string, cutoff time.Time) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deletedTenant = tenantID
	f.deletedCutoff = cutoff

	var kept []*ConversationEntry
	var deleted int64
	for _, e := range f.entries {
		if e.TenantID == tenantID && e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return deleted, nil
}

type fakeSemanticStore struct {
	docs      []Document
	addErr    error
	searchErr error

	gotTopK int
}

func (f *fakeSemanticStore) Add(_ context.Context, docs []Document) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.docs = append(f.docs, docs...)
	return nil
}

func (f *fakeSemanticStore) Search(_ context.Context, _, _ string, topK int) ([]Document, error) {
	f.gotTopK = topK
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.docs, nil
}

func testRequest() contractx.AgentRequest {
	return contractx.AgentRequest{
		UserID:    "user-1",
		SessionID: "session-1",
		TenantID:  "tenant-1",
		Input:     "tôi muốn xem các mẫu template",
	}
}

func TestSaveAndRetrieveRoundTripViaHistory(t *testing.T) {
	t.Parallel()

	history := &fakeHistoryStore{}
	gateway := NewGateway(history, nil, zerolog.Nop())

	gateway.SaveInteraction(context.Background(), testRequest(), "Đây là các mẫu hiện có.")

	got := gateway.RetrieveContext(context.Background(), "session-1", "tenant-1")
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 context lines, got %d: %q", len(lines), got)
	}
	if !strings.HasPrefix(lines[0], "[USER]: ") {
		t.Fatalf("first line = %q, want USER entry first", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[ASSISTANT]: ") {
		t.Fatalf("second line = %q, want ASSISTANT entry second", lines[1])
	}
}

func TestRetrieveContextEmptyWhenNoStores(t *testing.T) {
	t.Parallel()

	gateway := NewGateway(nil, nil, zerolog.Nop())

	gateway.SaveInteraction(context.Background(), testRequest(), "answer")
	if got := gateway.RetrieveContext(context.Background(), "session-1", "tenant-1"); got != "" {
		t.Fatalf("RetrieveContext() = %q, want empty", got)
	}
}

func TestRetrieveContextPrefersSemanticStore(t *testing.T) {
	t.Parallel()

	history := &fakeHistoryStore{
		entries: []*ConversationEntry{
			{SessionID: "session-1", TenantID: "tenant-1", Role: contractx.RoleUser, Content: "relational"},
		},
	}
	semantic := &fakeSemanticStore{
		docs: []Document{
			{Content: "semantic", Metadata: map[string]string{"role": "USER"}},
		},
	}
	gateway := NewGateway(history, semantic, zerolog.Nop())

	got := gateway.RetrieveContext(context.Background(), "session-1", "tenant-1")
	if got != "[USER]: semantic" {
		t.Fatalf("RetrieveContext() = %q, want semantic store content", got)
	}
	if semantic.gotTopK != contextTopK {
		t.Fatalf("topK = %d, want %d", semantic.gotTopK, contextTopK)
	}
}

func TestRetrieveContextDoesNotFallBackOnSemanticFailure(t *testing.T) {
	t.Parallel()

	history := &fakeHistoryStore{
		entries: []*ConversationEntry{
			{SessionID: "session-1", TenantID: "tenant-1", Role: contractx.RoleUser, Content: "relational"},
		},
	}
	semantic := &fakeSemanticStore{searchErr: errors.New("vector down")}
	gateway := NewGateway(history, semantic, zerolog.Nop())

	if got := gateway.RetrieveContext(context.Background(), "session-1", "tenant-1"); got != "" {
		t.Fatalf("RetrieveContext() = %q, want empty on semantic failure", got)
	}
}

func TestSaveInteractionSwallowsStoreFailures(t *testing.T) {
	t.Parallel()

	history := &fakeHistoryStore{appendErr: errors.New("db down")}
	semantic := &fakeSemanticStore{addErr: errors.New("vector down")}
	gateway := NewGateway(history, semantic, zerolog.Nop())

	// Must not panic and must not surface either failure.
	gateway.SaveInteraction(context.Background(), testRequest(), "answer")
}

func TestSaveInteractionMetadata(t *testing.T) {
	t.Parallel()

	history := &fakeHistoryStore{}
	gateway := NewGateway(history, nil, zerolog.Nop())

	req := testRequest()
	req.Context = map[string]any{"page": "pricing"}
	gateway.SaveInteraction(context.Background(), req, "answer")

	if len(history.entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history.entries))
	}

	user := history.entries[0]
	if user.Role != contractx.RoleUser {
		t.Fatalf("first entry role = %s, want USER", user.Role)
	}
	if user.Metadata["message_type"] != "user_input" {
		t.Fatalf("message_type = %q", user.Metadata["message_type"])
	}
	if user.Metadata["request_type"] != "template_inquiry" {
		t.Fatalf("request_type = %q, want template_inquiry", user.Metadata["request_type"])
	}
	if user.Metadata["has_context"] != "true" {
		t.Fatalf("has_context = %q, want true", user.Metadata["has_context"])
	}
	if user.Metadata["context_keys"] != "page" {
		t.Fatalf("context_keys = %q, want page", user.Metadata["context_keys"])
	}

	ai := history.entries[1]
	if ai.Role != contractx.RoleAssistant {
		t.Fatalf("second entry role = %s, want ASSISTANT", ai.Role)
	}
	if ai.Metadata["message_type"] != "ai_response" {
		t.Fatalf("message_type = %q", ai.Metadata["message_type"])
	}
	if ai.Metadata["response_length"] != "6" {
		t.Fatalf("response_length = %q, want 6", ai.Metadata["response_length"])
	}
	if ai.Metadata["processing_timestamp"] == "" {
		t.Fatal("processing_timestamp missing")
	}
}

func TestClassifyRequestType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  string
	}{
		{input: "tạo cho tôi một website", want: "creation_request"},
		{input: "please CREATE a site", want: "creation_request"},
		{input: "giá bao nhiêu", want: "pricing_inquiry"},
		{input: "what is the price", want: "pricing_inquiry"},
		{input: "cho tôi xem các mẫu", want: "template_inquiry"},
		{input: "show me a template", want: "template_inquiry"},
		{input: "xin chào", want: "general_inquiry"},
	}

	for _, tc := range cases {
		if got := classifyRequestType(tc.input); got != tc.want {
			t.Fatalf("classifyRequestType(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestCleanupOldConversationsScopedToTenant(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	history := &fakeHistoryStore{
		entries: []*ConversationEntry{
			{TenantID: "tenant-1", SessionID: "s1", CreatedAt: now.Add(-48 * time.Hour)},
			{TenantID: "tenant-1", SessionID: "s1", CreatedAt: now},
			{TenantID: "tenant-2", SessionID: "s2", CreatedAt: now.Add(-48 * time.Hour)},
		},
	}
	gateway := NewGateway(history, nil, zerolog.Nop())

	cutoff := now.Add(-24 * time.Hour)
	gateway.CleanupOldConversations(context.Background(), "tenant-1", cutoff)

	if history.deletedTenant != "tenant-1" {
		t.Fatalf("deleted tenant = %q, want tenant-1", history.deletedTenant)
	}
	if !history.deletedCutoff.Equal(cutoff) {
		t.Fatalf("cutoff = %v, want %v", history.deletedCutoff, cutoff)
	}
	if len(history.entries) != 2 {
		t.Fatalf("expected 2 surviving entries, got %d", len(history.entries))
	}
	for _, e := range history.entries {
		if e.TenantID == "tenant-2" {
			continue
		}
		if e.CreatedAt.Before(cutoff) {
			t.Fatalf("entry before cutoff survived: %v", e.CreatedAt)
		}
	}
}

func TestCleanupOldConversationsNoHistoryStore(t *testing.T) {
	t.Parallel()

	gateway := NewGateway(nil, nil, zerolog.Nop())
	gateway.CleanupOldConversations(context.Background(), "tenant-1", time.Now())
}

func TestSessionMessageCount(t *testing.T) {
	t.Parallel()

	history := &fakeHistoryStore{}
	gateway := NewGateway(history, nil, zerolog.Nop())

	gateway.SaveInteraction(context.Background(), testRequest(), "first")
	gateway.SaveInteraction(context.Background(), testRequest(), "second")

	if got := gateway.SessionMessageCount(context.Background(), "session-1", "tenant-1"); got != 4 {
		t.Fatalf("SessionMessageCount() = %d, want 4", got)
	}
	if got := gateway.SessionMessageCount(context.Background(), "other", "tenant-1"); got != 0 {
		t.Fatalf("SessionMessageCount() = %d, want 0", got)
	}
}
