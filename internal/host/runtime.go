// Package host runs the player block as a standalone HTTP service: it
// implements the block's runtime capabilities and exposes its views and
// handlers over chi.
package host

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"

	"amsplayer/internal/block"
)

// Renderer executes the block's html templates.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer(fsys fs.FS) (*Renderer, error) {
	t, err := template.New("").Funcs(block.TemplateFuncs).ParseFS(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type runtime struct {
	*Renderer
	bus EventBus
}

// NewRuntime pairs template rendering with an event bus.
func NewRuntime(r *Renderer, bus EventBus) block.Runtime {
	return runtime{Renderer: r, bus: bus}
}

func (rt runtime) Publish(ctx context.Context, ids block.ScopeIDs, eventType string, payload map[string]any) error {
	return rt.bus.Publish(ctx, Event{Type: eventType, UsageID: ids.UsageID, UserID: ids.UserID, Payload: payload})
}
