package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	contractx "github.com/nguyentrungtung/sitebuilder-agent/agent/contract"
	toolx "github.com/nguyentrungtung/sitebuilder-agent/agent/tool"
	openrouterx "github.com/nguyentrungtung/sitebuilder-agent/pkg/openrouter"
	sitebuilderx "github.com/nguyentrungtung/sitebuilder-agent/pkg/sitebuilder"
)

type echoTool struct {
	calls int
}

func (t *echoTool) Name() string        { return "echoTool" }
func (t *echoTool) Description() string { return "Echoes the given text." }

func (t *echoTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required": []string{"text"},
	}
}

func (t *echoTool) Invoke(_ context.Context, args map[string]any) (any, error) {
	t.calls++
	text, _ := args["text"].(string)
	return map[string]string{"echo": text}, nil
}

func completionReply(content string) string {
	encoded, _ := json.Marshal(content)
	return fmt.Sprintf(`{"id":"cmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":%s}}]}`, encoded)
}

const toolCallReply = `{"id":"cmpl-1","choices":[{"index":0,"message":{
	"role":"assistant","content":"",
	"tool_calls":[{"id":"call-1","type":"function","function":{"name":"echoTool","arguments":"{\"text\":\"hi\"}"}}]
}}]}`

func newTestClient(t *testing.T, handler http.HandlerFunc, tools ...toolx.Tool) *Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	registry, err := toolx.NewRegistry(tools...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	api := openrouterx.NewClient(openrouterx.Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	})
	if api == nil {
		t.Fatal("NewClient() returned nil")
	}

	client, err := New(api, registry, Config{Model: "test-model", MaxToolRounds: 3}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestCompleteReturnsContent(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, completionReply("CONSULTING"))
	})

	got, err := client.Complete(context.Background(), "", "classify this")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "CONSULTING" {
		t.Fatalf("Complete() = %q", got)
	}

	messages, _ := gotBody["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message without system prompt, got %d", len(messages))
	}
}

func TestCompleteIncludesSystemMessage(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, completionReply("ok"))
	})

	if _, err := client.Complete(context.Background(), "you are helpful", "hi"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	messages, _ := gotBody["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(messages))
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "system" {
		t.Fatalf("first message role = %v, want system", first["role"])
	}
}

func TestCompleteWrapsTransportFailure(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Complete(context.Background(), "", "hi")
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("Complete() error = %v, want ErrModelInvoke", err)
	}
}

func TestCompleteWithToolsResolvesFunctionCalls(t *testing.T) {
	t.Parallel()

	echo := &echoTool{}
	round := 0
	var secondBody map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		round++
		switch round {
		case 1:
			fmt.Fprint(w, toolCallReply)
		default:
			if err := json.NewDecoder(r.Body).Decode(&secondBody); err != nil {
				t.Errorf("decode request: %v", err)
			}
			fmt.Fprint(w, completionReply("đã echo xong"))
		}
	}, echo)

	got, err := client.CompleteWithTools(context.Background(), "system", "echo hi")
	if err != nil {
		t.Fatalf("CompleteWithTools() error = %v", err)
	}
	if got != "đã echo xong" {
		t.Fatalf("CompleteWithTools() = %q", got)
	}
	if echo.calls != 1 {
		t.Fatalf("tool invoked %d times, want 1", echo.calls)
	}

	raw, _ := json.Marshal(secondBody["messages"])
	if !strings.Contains(string(raw), `"tool_call_id":"call-1"`) {
		t.Fatalf("follow-up request missing tool result message: %s", raw)
	}
	if !strings.Contains(string(raw), `\"echo\":\"hi\"`) && !strings.Contains(string(raw), `"echo":"hi"`) {
		t.Fatalf("follow-up request missing tool payload: %s", raw)
	}
}

func TestCompleteWithToolsFeedsUnknownToolErrorBack(t *testing.T) {
	t.Parallel()

	round := 0
	var secondBody map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		round++
		switch round {
		case 1:
			fmt.Fprint(w, `{"id":"cmpl-1","choices":[{"index":0,"message":{
				"role":"assistant","content":"",
				"tool_calls":[{"id":"call-1","type":"function","function":{"name":"missingTool","arguments":"{}"}}]
			}}]}`)
		default:
			if err := json.NewDecoder(r.Body).Decode(&secondBody); err != nil {
				t.Errorf("decode request: %v", err)
			}
			fmt.Fprint(w, completionReply("sorry"))
		}
	})

	got, err := client.CompleteWithTools(context.Background(), "", "hi")
	if err != nil {
		t.Fatalf("CompleteWithTools() error = %v, want degraded success", err)
	}
	if got != "sorry" {
		t.Fatalf("CompleteWithTools() = %q", got)
	}

	raw, _ := json.Marshal(secondBody["messages"])
	if !strings.Contains(string(raw), "error") {
		t.Fatalf("unknown tool error not fed back to model: %s", raw)
	}
}

func TestCompleteWithToolsBoundsToolLoop(t *testing.T) {
	t.Parallel()

	echo := &echoTool{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		fmt.Fprint(w, toolCallReply)
	}, echo)

	_, err := client.CompleteWithTools(context.Background(), "", "hi")
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("CompleteWithTools() error = %v, want ErrModelInvoke", err)
	}
	if echo.calls != 3 {
		t.Fatalf("tool invoked %d times, want one per round", echo.calls)
	}
}

type failingPlatform struct{}

func (failingPlatform) Templates(context.Context) ([]sitebuilderx.Template, error) {
	return nil, errors.New("platform down")
}

func (failingPlatform) PricingPlans(context.Context) ([]sitebuilderx.PricingPlan, error) {
	return nil, errors.New("platform down")
}

func (failingPlatform) CreateWebsite(context.Context, sitebuilderx.WebsiteCreationRequest) (*sitebuilderx.WebsiteCreation, error) {
	return nil, errors.New("platform down")
}

func TestCompleteWithToolsWebsiteCreationFailureDegrades(t *testing.T) {
	t.Parallel()

	round := 0
	var secondBody map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		round++
		switch round {
		case 1:
			fmt.Fprint(w, `{"id":"cmpl-1","choices":[{"index":0,"message":{
				"role":"assistant","content":"",
				"tool_calls":[{"id":"call-1","type":"function","function":{"name":"createWebsiteTool","arguments":"{\"description\":\"web bán hoa\"}"}}]
			}}]}`)
		default:
			if err := json.NewDecoder(r.Body).Decode(&secondBody); err != nil {
				t.Errorf("decode request: %v", err)
			}
			fmt.Fprint(w, completionReply("Xin lỗi, hiện chưa tạo được website."))
		}
	}, toolx.NewWebsiteCreationTool(failingPlatform{}, zerolog.Nop()))

	got, err := client.CompleteWithTools(context.Background(), "system", "tạo web bán hoa")
	if err != nil {
		t.Fatalf("CompleteWithTools() error = %v, want degraded success", err)
	}
	if got != "Xin lỗi, hiện chưa tạo được website." {
		t.Fatalf("CompleteWithTools() = %q", got)
	}

	raw, _ := json.Marshal(secondBody["messages"])
	if !strings.Contains(string(raw), "failed") {
		t.Fatalf("degraded tool payload not fed back to model: %s", raw)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	registry, err := toolx.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	api := openrouterx.NewClient(openrouterx.Config{APIKey: "k", Model: "m"})
	if api == nil {
		t.Fatal("NewClient() returned nil")
	}

	if _, err := New(nil, registry, Config{Model: "m"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for nil api client")
	}
	if _, err := New(api, nil, Config{Model: "m"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for nil registry")
	}
	if _, err := New(api, registry, Config{}, zerolog.Nop()); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("New() error = %v, want ErrValidation", err)
	}
}
