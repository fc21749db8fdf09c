package tool

import (
	"context"

	"github.com/rs/zerolog"
)

const ToolAvailableTemplates = "getAvailableTemplatesTool"

// TemplateInfo is the tool-facing projection of a platform template.
type TemplateInfo struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	PreviewImageURL string `json:"previewImageUrl"`
}

// TemplatesResponse is the result of ToolAvailableTemplates.
type TemplatesResponse struct {
	Templates []TemplateInfo `json:"templates"`
}

type TemplatesTool struct {
	api    PlatformAPI
	logger zerolog.Logger
}

func NewTemplatesTool(api PlatformAPI, logger zerolog.Logger) *TemplatesTool {
	return &TemplatesTool{api: api, logger: logger}
}

func (t *TemplatesTool) Name() string { return ToolAvailableTemplates }

func (t *TemplatesTool) Description() string {
	return "Lấy danh sách tất cả các giao diện website có sẵn của hệ thống. Dùng khi người dùng muốn xem các mẫu giao diện."
}

func (t *TemplatesTool) Parameters() map[string]any { return emptyObjectSchema() }

// Invoke lists templates. A platform failure degrades to an empty list so the
// generation layer can explain the outcome instead of aborting the request.
func (t *TemplatesTool) Invoke(ctx context.Context, _ map[string]any) (any, error) {
	templates, err := t.api.Templates(ctx)
	if err != nil {
		t.logger.Error().Err(err).Str("tool", t.Name()).Msg("platform template listing failed, degrading to empty list")
		templates = nil
	}

	infos := make([]TemplateInfo, 0, len(templates))
	for _, tpl := range templates {
		infos = append(infos, TemplateInfo{
			ID:              tpl.ID,
			Name:            tpl.Name,
			Description:     tpl.Description,
			PreviewImageURL: tpl.PreviewImageURL,
		})
	}

	return TemplatesResponse{Templates: infos}, nil
}
