// Package workflow holds the two execution strategies: the consulting chain
// and the default tool-augmented orchestration. Both are compiled once as
// linear eino graphs and invoked per request.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"

	contractx "github.com/nguyentrungtung/sitebuilder-agent/agent/contract"
	promptx "github.com/nguyentrungtung/sitebuilder-agent/agent/prompt"
	toolx "github.com/nguyentrungtung/sitebuilder-agent/agent/tool"
)

// consultingState is the shared mutable context of one chain execution. It
// lives for exactly one Invoke and never escapes it.
type consultingState struct {
	request        contractx.AgentRequest
	templates      []toolx.TemplateInfo
	recommendation string
}

// Consulting is the fixed two-step chain: fetch the template list, then
// recommend. It never touches persisted memory: a consultation is advisory.
type Consulting struct {
	tools     *toolx.Registry
	completer contractx.Completer
	prompts   *promptx.Builder
	logger    zerolog.Logger

	runner compose.Runnable[contractx.AgentRequest, contractx.AgentResponse]
}

func NewConsulting(
	tools *toolx.Registry,
	completer contractx.Completer,
	prompts *promptx.Builder,
	logger zerolog.Logger,
) (*Consulting, error) {
	if tools == nil {
		return nil, errors.New("tool registry is required")
	}
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if prompts == nil {
		return nil, errors.New("prompt builder is required")
	}

	c := &Consulting{
		tools:     tools,
		completer: completer,
		prompts:   prompts,
		logger:    logger,
	}

	runner, err := c.compileChainGraph(context.Background())
	if err != nil {
		return nil, err
	}
	c.runner = runner

	return c, nil
}

// Execute runs the chain. Tool and generation failures propagate to the
// caller; there is no retry and no partial answer.
func (c *Consulting) Execute(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	return c.runner.Invoke(ctx, req)
}

func (c *Consulting) compileChainGraph(
	ctx context.Context,
) (compose.Runnable[contractx.AgentRequest, contractx.AgentResponse], error) {
	graph := compose.NewGraph[contractx.AgentRequest, contractx.AgentResponse]()

	if err := graph.AddLambdaNode("fetch_templates",
		compose.InvokableLambda(func(ctx context.Context, req contractx.AgentRequest) (*consultingState, error) {
			return c.fetchTemplates(ctx, req)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node fetch_templates: %w", err)
	}

	if err := graph.AddLambdaNode("recommend",
		compose.InvokableLambda(func(ctx context.Context, in *consultingState) (*consultingState, error) {
			return c.recommend(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node recommend: %w", err)
	}

	if err := graph.AddLambdaNode("finalize",
		compose.InvokableLambda(func(ctx context.Context, in *consultingState) (contractx.AgentResponse, error) {
			if in == nil {
				return contractx.AgentResponse{}, fmt.Errorf("%w: chain state is nil", contractx.ErrValidation)
			}
			return contractx.AgentResponse{
				Output: in.recommendation,
				Status: contractx.StatusSuccess,
			}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize: %w", err)
	}

	edges := [][2]string{
		{compose.START, "fetch_templates"},
		{"fetch_templates", "recommend"},
		{"recommend", "finalize"},
		{"finalize", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("consulting.chain"))
	if err != nil {
		return nil, fmt.Errorf("compile consulting chain graph: %w", err)
	}
	return runner, nil
}

func (c *Consulting) fetchTemplates(ctx context.Context, req contractx.AgentRequest) (*consultingState, error) {
	t, err := c.tools.Get(toolx.ToolAvailableTemplates)
	if err != nil {
		return nil, err
	}

	out, err := t.Invoke(ctx, nil)
	if err != nil {
		return nil, err
	}
	resp, ok := out.(toolx.TemplatesResponse)
	if !ok {
		return nil, fmt.Errorf("%w: %T from %s", contractx.ErrUnexpectedToolResult, out, toolx.ToolAvailableTemplates)
	}

	c.logger.Debug().Int("templates", len(resp.Templates)).Msg("fetched available templates")
	return &consultingState{
		request:   req,
		templates: resp.Templates,
	}, nil
}

func (c *Consulting) recommend(ctx context.Context, in *consultingState) (*consultingState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: chain state is nil", contractx.ErrValidation)
	}

	prompt := c.prompts.Consulting(in.request.Input, renderTemplates(in.templates))
	recommendation, err := c.completer.Complete(ctx, "", prompt)
	if err != nil {
		return nil, err
	}

	in.recommendation = recommendation
	return in, nil
}

// renderTemplates enumerates templates in the order the tool returned them.
func renderTemplates(templates []toolx.TemplateInfo) string {
	lines := make([]string, 0, len(templates))
	for _, t := range templates {
		lines = append(lines, fmt.Sprintf("- ID: %s, Name: %s, Description: %s", t.ID, t.Name, t.Description))
	}
	return strings.Join(lines, "\n")
}
