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
)

// orchestrationState is the per-request pipeline state.
type orchestrationState struct {
	request             contractx.AgentRequest
	conversationContext string
	systemPrompt        string
	reply               string
}

// Orchestration is the default single-turn strategy: retrieve context, build
// the system instruction, generate (tool-augmented), persist, answer.
type Orchestration struct {
	completer contractx.ToolCompleter
	memory    contractx.Memory
	prompts   *promptx.Builder
	logger    zerolog.Logger

	runner compose.Runnable[contractx.AgentRequest, contractx.AgentResponse]
}

func NewOrchestration(
	completer contractx.ToolCompleter,
	memory contractx.Memory,
	prompts *promptx.Builder,
	logger zerolog.Logger,
) (*Orchestration, error) {
	if completer == nil {
		return nil, errors.New("tool completer is required")
	}
	if prompts == nil {
		return nil, errors.New("prompt builder is required")
	}
	if memory == nil {
		memory = noopMemory{}
	}

	o := &Orchestration{
		completer: completer,
		memory:    memory,
		prompts:   prompts,
		logger:    logger,
	}

	runner, err := o.compileProcessGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.runner = runner

	return o, nil
}

// Process runs the pipeline. Only a failure of the generation call itself
// propagates; memory operations are best-effort inside the gateway.
func (o *Orchestration) Process(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	return o.runner.Invoke(ctx, req)
}

func (o *Orchestration) compileProcessGraph(
	ctx context.Context,
) (compose.Runnable[contractx.AgentRequest, contractx.AgentResponse], error) {
	graph := compose.NewGraph[contractx.AgentRequest, contractx.AgentResponse]()

	if err := graph.AddLambdaNode("retrieve_context",
		compose.InvokableLambda(func(ctx context.Context, req contractx.AgentRequest) (*orchestrationState, error) {
			return &orchestrationState{
				request:             req,
				conversationContext: o.memory.RetrieveContext(ctx, req.SessionID, req.TenantID),
			}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node retrieve_context: %w", err)
	}

	if err := graph.AddLambdaNode("build_prompt",
		compose.InvokableLambda(func(ctx context.Context, in *orchestrationState) (*orchestrationState, error) {
			if in == nil {
				return nil, fmt.Errorf("%w: orchestration state is nil", contractx.ErrValidation)
			}
			in.systemPrompt = o.prompts.System(in.conversationContext)
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node build_prompt: %w", err)
	}

	if err := graph.AddLambdaNode("generate",
		compose.InvokableLambda(func(ctx context.Context, in *orchestrationState) (*orchestrationState, error) {
			return o.generate(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node generate: %w", err)
	}

	if err := graph.AddLambdaNode("persist",
		compose.InvokableLambda(func(ctx context.Context, in *orchestrationState) (*orchestrationState, error) {
			if in == nil {
				return nil, fmt.Errorf("%w: orchestration state is nil", contractx.ErrValidation)
			}
			o.memory.SaveInteraction(ctx, in.request, in.reply)
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist: %w", err)
	}

	if err := graph.AddLambdaNode("finalize",
		compose.InvokableLambda(func(ctx context.Context, in *orchestrationState) (contractx.AgentResponse, error) {
			if in == nil {
				return contractx.AgentResponse{}, fmt.Errorf("%w: orchestration state is nil", contractx.ErrValidation)
			}
			return contractx.AgentResponse{
				Output: in.reply,
				Status: contractx.StatusSuccess,
			}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize: %w", err)
	}

	edges := [][2]string{
		{compose.START, "retrieve_context"},
		{"retrieve_context", "build_prompt"},
		{"build_prompt", "generate"},
		{"generate", "persist"},
		{"persist", "finalize"},
		{"finalize", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestration.process"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestration graph: %w", err)
	}
	return runner, nil
}

func (o *Orchestration) generate(ctx context.Context, in *orchestrationState) (*orchestrationState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: orchestration state is nil", contractx.ErrValidation)
	}

	reply, err := o.completer.CompleteWithTools(ctx, in.systemPrompt, in.request.Input)
	if err != nil {
		return nil, err
	}

	// Trim-and-uppercase matches the established answer surface; downstream
	// consumers compare against it.
	in.reply = strings.ToUpper(strings.TrimSpace(reply))
	return in, nil
}

type noopMemory struct{}

func (noopMemory) RetrieveContext(context.Context, string, string) string { return "" }

func (noopMemory) SaveInteraction(context.Context, contractx.AgentRequest, string) {}
