// Package render turns assistant message content into styled terminal
// output: markdown through glamour, reasoning spans muted and indented.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type Renderer struct {
	md        *glamour.TermRenderer
	reasoning lipgloss.Style
}

func NewRenderer(width int) (*Renderer, error) {
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &Renderer{
		md: md,
		reasoning: lipgloss.NewStyle().
			Faint(true).
			PaddingLeft(2).
			Width(width),
	}, nil
}

// Render formats a full assistant message. Reasoning spans are shown
// de-emphasized above the answer they led to.
func (r *Renderer) Render(content string) (string, error) {
	var out strings.Builder
	for _, span := range ParseSpans(content) {
		switch span.Kind {
		case SpanReasoning:
			text := strings.TrimSpace(span.Text)
			if text == "" {
				continue
			}
			out.WriteString(r.reasoning.Render(text))
			out.WriteString("\n")
		default:
			rendered, err := r.md.Render(span.Text)
			if err != nil {
				return "", fmt.Errorf("failed to render markdown: %w", err)
			}
			out.WriteString(rendered)
		}
	}
	return out.String(), nil
}
