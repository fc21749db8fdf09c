// Package router classifies an inbound request into exactly one workflow
// route using the generation capability.
package router

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	contractx "github.com/nguyentrungtung/sitebuilder-agent/agent/contract"
	promptx "github.com/nguyentrungtung/sitebuilder-agent/agent/prompt"
)

const consultingIntent = "CONSULTING"

type Router struct {
	completer contractx.Completer
	prompts   *promptx.Builder
	logger    zerolog.Logger
}

func New(completer contractx.Completer, prompts *promptx.Builder, logger zerolog.Logger) (*Router, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if prompts == nil {
		return nil, errors.New("prompt builder is required")
	}
	return &Router{completer: completer, prompts: prompts, logger: logger}, nil
}

// DetermineRoute maps the classification reply to a route. Only the exact
// normalized token CONSULTING selects the consulting chain; everything else
// fails toward the orchestration path, which can still answer directly. A
// generation failure propagates as a routing failure.
func (r *Router) DetermineRoute(ctx context.Context, req contractx.AgentRequest) (contractx.Route, error) {
	reply, err := r.completer.Complete(ctx, "", r.prompts.Routing(req.Input))
	if err != nil {
		return contractx.RouteOrchestration, err
	}

	intent := strings.ToUpper(strings.TrimSpace(reply))
	if intent == consultingIntent {
		return contractx.RouteConsulting, nil
	}

	if intent != "ORCHESTRATION" {
		r.logger.Debug().Str("intent", intent).Msg("unexpected classification label, defaulting to orchestration")
	}
	return contractx.RouteOrchestration, nil
}
