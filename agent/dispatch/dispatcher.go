// Package dispatch composes the router with the two workflows. Dispatcher is
// the only entry point consumed by the transport layer.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	contractx "github.com/nguyentrungtung/sitebuilder-agent/agent/contract"
)

const failureMessage = "Xin lỗi, hệ thống đang gặp sự cố khi xử lý yêu cầu của bạn. Vui lòng thử lại sau."

type Router interface {
	DetermineRoute(ctx context.Context, req contractx.AgentRequest) (contractx.Route, error)
}

type ChainWorkflow interface {
	Execute(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error)
}

type OrchestrationWorkflow interface {
	Process(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error)
}

type Dispatcher struct {
	router        Router
	consulting    ChainWorkflow
	orchestration OrchestrationWorkflow
	logger        zerolog.Logger
}

func New(
	router Router,
	consulting ChainWorkflow,
	orchestration OrchestrationWorkflow,
	logger zerolog.Logger,
) (*Dispatcher, error) {
	if router == nil {
		return nil, errors.New("router is required")
	}
	if consulting == nil {
		return nil, errors.New("consulting workflow is required")
	}
	if orchestration == nil {
		return nil, errors.New("orchestration workflow is required")
	}
	return &Dispatcher{
		router:        router,
		consulting:    consulting,
		orchestration: orchestration,
		logger:        logger,
	}, nil
}

// Handle routes the request to exactly one workflow and maps any unrecovered
// failure to a FAILED response with a generic message.
func (d *Dispatcher) Handle(ctx context.Context, req contractx.AgentRequest) contractx.AgentResponse {
	route, err := d.router.DetermineRoute(ctx, req)
	if err != nil {
		d.identityLog(req).Err(err).Msg("routing failed")
		return failedResponse()
	}

	d.logger.Info().
		Stringer("route", route).
		Str("session_id", req.SessionID).
		Str("tenant_id", req.TenantID).
		Msg("determined route")

	var resp contractx.AgentResponse
	switch route {
	case contractx.RouteConsulting:
		resp, err = d.consulting.Execute(ctx, req)
	case contractx.RouteOrchestration:
		resp, err = d.orchestration.Process(ctx, req)
	default:
		err = fmt.Errorf("%w: unknown route %d", contractx.ErrValidation, route)
	}
	if err != nil {
		d.identityLog(req).Err(err).Stringer("route", route).Msg("workflow execution failed")
		return failedResponse()
	}

	return resp
}

func (d *Dispatcher) identityLog(req contractx.AgentRequest) *zerolog.Event {
	return d.logger.Error().
		Str("user_id", req.UserID).
		Str("session_id", req.SessionID).
		Str("tenant_id", req.TenantID)
}

func failedResponse() contractx.AgentResponse {
	return contractx.AgentResponse{
		Output: failureMessage,
		Status: contractx.StatusFailed,
	}
}
