// Package llm adapts the OpenRouter chat completion API to the generation
// contracts used by the router and workflows. Tool-augmented generation runs
// the function-calling loop inside the single CompleteWithTools boundary.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog"

	contractx "github.com/nguyentrungtung/sitebuilder-agent/agent/contract"
	toolx "github.com/nguyentrungtung/sitebuilder-agent/agent/tool"
)

const defaultMaxToolRounds = 4

type Config struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	MaxToolRounds       int
}

// Client implements contract.Completer and contract.ToolCompleter.
type Client struct {
	api    *openaisdk.Client
	tools  *toolx.Registry
	cfg    Config
	logger zerolog.Logger
}

var (
	_ contractx.Completer     = (*Client)(nil)
	_ contractx.ToolCompleter = (*Client)(nil)
)

func New(api *openaisdk.Client, tools *toolx.Registry, cfg Config, logger zerolog.Logger) (*Client, error) {
	if api == nil {
		return nil, errors.New("openrouter client is required")
	}
	if tools == nil {
		return nil, errors.New("tool registry is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model is required", contractx.ErrValidation)
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = defaultMaxToolRounds
	}
	return &Client{api: api, tools: tools, cfg: cfg, logger: logger}, nil
}

// Complete performs a single exchange without tools.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	params := c.baseParams(system, user)

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", contractx.ErrModelInvoke)
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteWithTools advertises every registered tool and resolves function
// calls until the model produces a final text answer. Tool-level failures are
// fed back to the model as payloads, never surfaced as call failures.
func (c *Client) CompleteWithTools(ctx context.Context, system, user string) (string, error) {
	params := c.baseParams(system, user)
	params.Tools = c.toolParams()

	for round := 0; round < c.cfg.MaxToolRounds; round++ {
		resp, err := c.api.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("%w: empty completion", contractx.ErrModelInvoke)
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		params.Messages = append(params.Messages, msg.ToParam())
		for _, call := range msg.ToolCalls {
			payload := c.invokeTool(ctx, call.Function.Name, call.Function.Arguments)
			params.Messages = append(params.Messages, openaisdk.ToolMessage(payload, call.ID))
		}
	}

	return "", fmt.Errorf("%w: tool loop exceeded %d rounds", contractx.ErrModelInvoke, c.cfg.MaxToolRounds)
}

func (c *Client) baseParams(system, user string) openaisdk.ChatCompletionNewParams {
	var messages []openaisdk.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openaisdk.SystemMessage(system))
	}
	messages = append(messages, openaisdk.UserMessage(user))

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.cfg.Model),
		Messages: messages,
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = openaisdk.Float(c.cfg.Temperature)
	}
	if c.cfg.MaxCompletionTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(c.cfg.MaxCompletionTokens)
	}
	return params
}

func (c *Client) toolParams() []openaisdk.ChatCompletionToolParam {
	tools := c.tools.List()
	params := make([]openaisdk.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		params = append(params, openaisdk.ChatCompletionToolParam{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        t.Name(),
				Description: openaisdk.String(t.Description()),
				Parameters:  openaisdk.FunctionParameters(t.Parameters()),
			},
		})
	}
	return params
}

// invokeTool executes one model-requested call and renders the outcome as a
// JSON payload for the follow-up completion round.
func (c *Client) invokeTool(ctx context.Context, name, rawArgs string) string {
	t, err := c.tools.Get(name)
	if err != nil {
		c.logger.Warn().Str("tool", name).Msg("model requested unregistered tool")
		return toolErrorPayload(err)
	}

	args := map[string]any{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			c.logger.Warn().Err(err).Str("tool", name).Msg("invalid tool arguments from model")
			return toolErrorPayload(fmt.Errorf("invalid arguments: %v", err))
		}
	}

	c.logger.Info().Str("tool", name).Msg("executing tool")
	result, err := t.Invoke(ctx, args)
	if err != nil {
		c.logger.Error().Err(err).Str("tool", name).Msg("tool invocation failed")
		return toolErrorPayload(err)
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		c.logger.Error().Err(err).Str("tool", name).Msg("tool result not serializable")
		return toolErrorPayload(err)
	}
	return string(encoded)
}

func toolErrorPayload(err error) string {
	encoded, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		return `{"error":"tool execution failed"}`
	}
	return string(encoded)
}
