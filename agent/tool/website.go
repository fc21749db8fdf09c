package tool

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	sitebuilderx "github.com/nguyentrungtung/sitebuilder-agent/pkg/sitebuilder"
)

const ToolCreateWebsite = "createWebsiteTool"

const (
	WebsiteStatusFailed = "failed"

	websiteFailureMessage = "Không thể tạo website do lỗi hệ thống. Vui lòng thử lại sau."
)

// WebsiteCreationResult is the result of ToolCreateWebsite. On platform
// failure Status is "failed" and WebsiteURL carries an apologetic message.
type WebsiteCreationResult struct {
	Status     string `json:"status"`
	WebsiteID  string `json:"websiteId,omitempty"`
	WebsiteURL string `json:"websiteUrl"`
}

type WebsiteCreationTool struct {
	api    PlatformAPI
	logger zerolog.Logger
}

func NewWebsiteCreationTool(api PlatformAPI, logger zerolog.Logger) *WebsiteCreationTool {
	return &WebsiteCreationTool{api: api, logger: logger}
}

func (t *WebsiteCreationTool) Name() string { return ToolCreateWebsite }

func (t *WebsiteCreationTool) Description() string {
	return "Tạo một website mới cho người dùng. Sử dụng tool này khi người dùng yêu cầu 'tạo web', 'xây dựng trang web', 'làm cho tôi một web'. Tool này cần một mô tả về website và một mã giao diện (templateId) nếu người dùng cung cấp."
}

func (t *WebsiteCreationTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{
				"type":        "string",
				"description": "Mô tả về website người dùng muốn (ví dụ: 'cửa hàng bán hoa', 'blog du lịch').",
			},
			"templateId": map[string]any{
				"type":        "string",
				"description": "Mã của giao diện người dùng đã chọn (ví dụ: 'tpl-fashion-01'). Có thể bỏ trống.",
			},
		},
		"required": []string{"description"},
	}
}

// Invoke creates a website. A platform failure degrades to a failed-status
// result; it never becomes a workflow failure.
func (t *WebsiteCreationTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	description := strings.TrimSpace(stringArg(args, "description"))
	templateID := strings.TrimSpace(stringArg(args, "templateId"))

	t.logger.Info().
		Str("tool", t.Name()).
		Str("description", description).
		Str("template_id", templateID).
		Msg("creating website")

	created, err := t.api.CreateWebsite(ctx, sitebuilderx.WebsiteCreationRequest{
		Description: description,
		TemplateID:  templateID,
	})
	if err != nil || created == nil {
		t.logger.Error().Err(err).Str("tool", t.Name()).Msg("platform website creation failed, degrading to failed status")
		return WebsiteCreationResult{
			Status:     WebsiteStatusFailed,
			WebsiteURL: websiteFailureMessage,
		}, nil
	}

	return WebsiteCreationResult{
		Status:     created.Status,
		WebsiteID:  created.WebsiteID,
		WebsiteURL: created.WebsiteURL,
	}, nil
}
