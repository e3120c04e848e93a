package tui

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

// rendererCache holds one glamour renderer per style and wrap width. Building
// a renderer parses the whole style sheet, so the header must not do it on
// every frame.
type rendererCache struct {
	mu sync.Mutex
	m  map[string]*glamour.TermRenderer
}

var mdCache = &rendererCache{m: map[string]*glamour.TermRenderer{}}

func (c *rendererCache) get(style string, width int) (*glamour.TermRenderer, error) {
	key := fmt.Sprintf("%s/%d", style, width)

	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.m[key]; ok {
		return r, nil
	}
	// Explicit styles only: WithAutoStyle probes the terminal background and
	// can hang inside the alt screen.
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(introStyleConfig(style)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	c.m[key] = r
	return r, nil
}

// renderMarkdown renders md for the header. On any renderer error the source
// text is shown as is.
func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	r, err := mdCache.get(markdownStyle(), max(width, 10))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

// markdownStyle picks "light" or "dark". The first of STOREVEC_TUI_MD_STYLE,
// STOREVEC_TUI_THEME and COLORFGBG that says something wins.
func markdownStyle() string {
	for _, env := range []string{"STOREVEC_TUI_MD_STYLE", "STOREVEC_TUI_THEME"} {
		if v := strings.ToLower(strings.TrimSpace(os.Getenv(env))); v == "light" || v == "dark" {
			return v
		}
	}
	if bg, ok := colorFGBGBackground(); ok {
		return lightIf(bg >= 7)
	}
	return lightIf(!lipgloss.HasDarkBackground())
}

func lightIf(light bool) string {
	if light {
		return "light"
	}
	return "dark"
}

func introStyleConfig(style string) ansi.StyleConfig {
	cfg := styles.DarkStyleConfig
	if style == "light" {
		cfg = styles.LightStyleConfig
	}
	pick := func(c lipgloss.AdaptiveColor) *string {
		s := c.Dark
		if style == "light" {
			s = c.Light
		}
		return &s
	}
	underline := true
	noMargin := uint(0)

	cfg.Document.Margin = &noMargin
	for _, block := range []*ansi.StyleBlock{&cfg.Heading, &cfg.H1, &cfg.H2} {
		block.Color = pick(colorSurfaceFg)
	}
	cfg.Text.Color = pick(colorSurfaceFg)
	cfg.Link.Color = pick(colorAccent)
	cfg.Link.Underline = &underline
	cfg.LinkText.Color = pick(colorAccent)
	cfg.LinkText.Underline = &underline
	cfg.Code.Color = pick(colorSurfaceFg)
	if cfg.Code.BackgroundColor == nil {
		cfg.Code.BackgroundColor = pick(colorControlBg)
	}
	return cfg
}
