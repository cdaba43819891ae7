// Package markdown renders model replies as styled terminal text.
package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

const defaultWidth = 100

var (
	mu        sync.Mutex
	styleName = styles.DarkStyle
	renderers = map[int]*glamour.TermRenderer{}
)

// SetStyle picks the glamour style matching a UI theme. Light themes get
// the light style, everything else the dark one.
func SetStyle(theme string) {
	mu.Lock()
	defer mu.Unlock()
	next := styles.DarkStyle
	if theme == "light" {
		next = styles.LightStyle
	}
	if next != styleName {
		styleName = next
		clear(renderers)
	}
}

// Render converts markdown text to styled ANSI output wrapped at the
// default width.
func Render(md string) string {
	return RenderWidth(md, defaultWidth)
}

// RenderWidth renders md wrapped at width. It falls back to the raw text
// if the renderer cannot be built or fails.
func RenderWidth(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return md
	}
	if width < 20 {
		width = 20
	}
	r := rendererFor(width)
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	// glamour pads with blank lines; trim for inline display.
	return strings.Trim(out, "\n")
}

func rendererFor(width int) *glamour.TermRenderer {
	mu.Lock()
	defer mu.Unlock()
	if r, ok := renderers[width]; ok {
		return r
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styleName),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	renderers[width] = r
	return r
}
