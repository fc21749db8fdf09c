package tool

import (
	"context"

	"github.com/rs/zerolog"
)

const ToolPricingPlans = "getPricingPlansTool"

// PlanInfo is the tool-facing projection of a pricing plan.
type PlanInfo struct {
	PlanName string   `json:"planName"`
	Price    float64  `json:"price"`
	Currency string   `json:"currency"`
	Features []string `json:"features"`
}

// PricingResponse is the result of ToolPricingPlans.
type PricingResponse struct {
	Plans []PlanInfo `json:"plans"`
}

type PricingTool struct {
	api    PlatformAPI
	logger zerolog.Logger
}

func NewPricingTool(api PlatformAPI, logger zerolog.Logger) *PricingTool {
	return &PricingTool{api: api, logger: logger}
}

func (t *PricingTool) Name() string { return ToolPricingPlans }

func (t *PricingTool) Description() string {
	return "Lấy thông tin chi tiết về các gói dịch vụ và giá hiện tại của hệ thống. Dùng khi người dùng hỏi về giá, chi phí, hoặc các gói dịch vụ."
}

func (t *PricingTool) Parameters() map[string]any { return emptyObjectSchema() }

// Invoke lists pricing plans, degrading to an empty list on platform failure.
func (t *PricingTool) Invoke(ctx context.Context, _ map[string]any) (any, error) {
	plans, err := t.api.PricingPlans(ctx)
	if err != nil {
		t.logger.Error().Err(err).Str("tool", t.Name()).Msg("platform pricing listing failed, degrading to empty list")
		plans = nil
	}

	infos := make([]PlanInfo, 0, len(plans))
	for _, p := range plans {
		infos = append(infos, PlanInfo{
			PlanName: p.PlanName,
			Price:    p.Price,
			Currency: p.Currency,
			Features: p.Features,
		})
	}

	return PricingResponse{Plans: infos}, nil
}
