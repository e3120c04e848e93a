package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
)

func TestMarkdownStyle_RespectsTUITheme(t *testing.T) {
	t.Setenv("STOREVEC_TUI_MD_STYLE", "")
	t.Setenv("COLORFGBG", "")

	t.Setenv("STOREVEC_TUI_THEME", "light")
	if got := markdownStyle(); got != "light" {
		t.Fatalf("expected light; got %q", got)
	}

	t.Setenv("STOREVEC_TUI_THEME", "dark")
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark; got %q", got)
	}
}

func TestMarkdownStyle_MDStyleOverridesTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("STOREVEC_TUI_THEME", "light")

	t.Setenv("STOREVEC_TUI_MD_STYLE", "dark")
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark; got %q", got)
	}
}

func TestMarkdownStyle_ColorFGBG(t *testing.T) {
	t.Setenv("STOREVEC_TUI_MD_STYLE", "")
	t.Setenv("STOREVEC_TUI_THEME", "")

	t.Setenv("COLORFGBG", "0;15")
	if got := markdownStyle(); got != "light" {
		t.Fatalf("expected light; got %q", got)
	}
	t.Setenv("COLORFGBG", "15;0")
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark; got %q", got)
	}
}

func TestRenderMarkdown_WrapsAndKeepsLinkText(t *testing.T) {
	t.Setenv("STOREVEC_TUI_MD_STYLE", "dark")
	lipgloss.SetColorProfile(termenv.Ascii)

	out := renderMarkdown("Items live in a [slice](https://go.dev/ref/spec#Slice_types) inside a reactive store.", 30)
	plain := xansi.Strip(out)
	if !strings.Contains(plain, "slice") {
		t.Fatalf("expected link text in output:\n%s", plain)
	}
	if strings.Count(plain, "\n") < 2 {
		t.Fatalf("expected wrapped output:\n%s", plain)
	}
}
