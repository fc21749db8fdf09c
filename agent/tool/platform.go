package tool

import (
	"context"

	sitebuilderx "github.com/nguyentrungtung/sitebuilder-agent/pkg/sitebuilder"
)

// PlatformAPI is the slice of the sitebuilder client the tools need.
type PlatformAPI interface {
	Templates(ctx context.Context) ([]sitebuilderx.Template, error)
	PricingPlans(ctx context.Context) ([]sitebuilderx.PricingPlan, error)
	CreateWebsite(ctx context.Context, req sitebuilderx.WebsiteCreationRequest) (*sitebuilderx.WebsiteCreation, error)
}

func emptyObjectSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}
