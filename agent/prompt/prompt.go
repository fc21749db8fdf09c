// Package prompt assembles the fixed prompts used by the router and the two
// workflows. Templates are compiled in via go:embed.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"time"
)

var (
	//go:embed template/system.txt
	systemRaw string

	//go:embed template/router.txt
	routerRaw string

	//go:embed template/consulting.txt
	consultingRaw string
)

// Builder renders prompts. It is safe for concurrent use.
type Builder struct {
	system     string
	router     string
	consulting string

	now func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{
		system:     strings.TrimSpace(systemRaw),
		router:     strings.TrimSpace(routerRaw),
		consulting: strings.TrimSpace(consultingRaw),
		now:        time.Now,
	}
}

// System builds the orchestration system instruction: persona, current date,
// tool-use workflow description, and the retrieved conversation context.
func (b *Builder) System(conversationContext string) string {
	date := b.now().Format("2006-01-02")
	return fmt.Sprintf(b.system, date, conversationContext)
}

// Routing builds the intent classification prompt around the raw user input.
func (b *Builder) Routing(input string) string {
	return fmt.Sprintf(b.router, input)
}

// Consulting builds the recommendation prompt from the user input and the
// rendered template list.
func (b *Builder) Consulting(input, renderedTemplates string) string {
	return fmt.Sprintf(b.consulting, input, renderedTemplates)
}
