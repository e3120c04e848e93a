package tui

import (
	"bytes"
	"strings"
	"testing"

	"storevec/internal/model"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
)

func TestRowDelegate_PadsAndTruncatesToWidth(t *testing.T) {
	lipgloss.SetColorProfile(termenv.ANSI256)

	items := []list.Item{
		rowItem{item: model.Item{ID: greatID, Value: "great"}},
		rowItem{item: model.Item{ID: amasingID, Value: strings.Repeat("x", 100)}},
	}
	l := newRowList(items, 40, 5)
	d := newRowDelegate()

	var b bytes.Buffer
	d.Render(&b, l, 0, items[0])
	first := b.String()
	if w := xansi.StringWidth(first); w != 40 {
		t.Fatalf("expected padded width 40, got %d", w)
	}
	if !strings.HasPrefix(xansi.Strip(first), "> great (") {
		t.Fatalf("expected selected marker, got %q", xansi.Strip(first))
	}

	b.Reset()
	d.Render(&b, l, 1, items[1])
	if w := xansi.StringWidth(b.String()); w != 40 {
		t.Fatalf("expected truncated width 40, got %d", w)
	}
}

func TestNewRowList_LeavesQuitToApp(t *testing.T) {
	l := newRowList(nil, 20, 5)
	if l.KeyMap.Quit.Enabled() || l.KeyMap.ForceQuit.Enabled() {
		t.Fatalf("expected list quit bindings disabled")
	}
	if l.FilteringEnabled() {
		t.Fatalf("expected filtering disabled")
	}
}
