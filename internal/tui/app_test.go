package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storevec/internal/liststore"
	"storevec/internal/loader"
	"storevec/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	greatID   = model.ItemID{15: 1}
	amasingID = model.ItemID{15: 2}
)

func sampleRows() []model.Item {
	return []model.Item{{ID: greatID, Value: "great"}, {ID: amasingID, Value: "amasing"}}
}

func newLoadedModel(t *testing.T, strict bool) appModel {
	t.Helper()
	res := loader.New(loader.SourceFunc(func(context.Context) ([]model.Item, error) {
		return sampleRows(), nil
	}))
	m := newAppModel(res, liststore.New(liststore.WithStrictDeletes(strict)), nil)
	mm, _ := m.Update(loadedMsg{items: sampleRows()})
	return mm.(appModel)
}

func press(t *testing.T, m appModel, r rune) (appModel, tea.Cmd) {
	t.Helper()
	mm, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	return mm.(appModel), cmd
}

func rowTitles(m appModel) []string {
	var out []string
	for _, li := range m.list.Items() {
		out = append(out, li.(rowItem).Title())
	}
	return out
}

func TestApp_LoadedShowsRowsInOrder(t *testing.T) {
	m := newLoadedModel(t, false)

	got := rowTitles(m)
	want := []string{
		"great (" + greatID.String() + ")",
		"amasing (" + amasingID.String() + ")",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("rows=%v want %v", got, want)
	}
	if v := m.View(); !strings.Contains(v, "Store Vec Demo") || !strings.Contains(v, "great (") {
		t.Fatalf("unexpected view:\n%s", v)
	}
}

func TestApp_PendingShowsSpinnerAndIgnoresIntents(t *testing.T) {
	res := loader.New(loader.SourceFunc(func(context.Context) ([]model.Item, error) {
		return sampleRows(), nil
	}))
	m := newAppModel(res, liststore.New(), nil)
	if m.Init() == nil {
		t.Fatalf("expected init to start loading")
	}
	if !strings.Contains(m.View(), "Loading") {
		t.Fatalf("expected loading view")
	}

	m, _ = press(t, m, 'a')
	if m.store.Len() != 0 || len(m.list.Items()) != 0 {
		t.Fatalf("intent applied before load")
	}
}

func TestApp_LoadFailureShowsErrorWithoutList(t *testing.T) {
	res := loader.New(loader.SourceFunc(func(context.Context) ([]model.Item, error) {
		return nil, errors.New("boom")
	}))
	m := newAppModel(res, liststore.New(), nil)
	mm, _ := m.Update(loadedMsg{err: errors.New("boom")})
	m = mm.(appModel)

	v := m.View()
	if !strings.Contains(v, "Failed to load items: boom") {
		t.Fatalf("expected error in view:\n%s", v)
	}
	if len(m.list.Items()) != 0 {
		t.Fatalf("expected no rows after failed load")
	}
}

func TestApp_AddMutateDeleteFirst(t *testing.T) {
	m := newLoadedModel(t, false)

	m, _ = press(t, m, 'a')
	if len(m.list.Items()) != 3 {
		t.Fatalf("expected 3 rows after add, got %v", rowTitles(m))
	}
	added := m.list.Items()[2].(rowItem).item
	if added.Value != model.PlaceholderValue || added.ID.IsZero() {
		t.Fatalf("unexpected added row: %+v", added)
	}

	m, _ = press(t, m, 'm')
	if got := m.list.Items()[1].(rowItem).item; got.ID != amasingID || got.Value != model.MutatedValue {
		t.Fatalf("expected amasing row mutated, got %+v", got)
	}

	m, _ = press(t, m, 'x')
	titles := rowTitles(m)
	if len(titles) != 2 || !strings.HasPrefix(titles[0], "Mutated (") || !strings.HasPrefix(titles[1], "Value (") {
		t.Fatalf("unexpected rows after delete first: %v", titles)
	}
}

func TestApp_DeleteUsesSelectedRowAtKeypress(t *testing.T) {
	m := newLoadedModel(t, false)
	m.list.Select(1)

	m, cmd := press(t, m, 'd')
	if cmd == nil {
		t.Fatalf("expected delete command")
	}
	msg, ok := cmd().(deleteItemMsg)
	if !ok || msg.id != amasingID {
		t.Fatalf("expected delete of amasing, got %#v", msg)
	}

	// Selection moving before the message lands must not change the target.
	m.list.Select(0)
	mm, _ := m.Update(msg)
	m = mm.(appModel)

	titles := rowTitles(m)
	if len(titles) != 1 || !strings.HasPrefix(titles[0], "great (") {
		t.Fatalf("unexpected rows: %v", titles)
	}
}

func TestApp_StaleDeleteLeavesListAndReports(t *testing.T) {
	m := newLoadedModel(t, false)

	mm, _ := m.Update(deleteItemMsg{id: model.NewItemID()})
	m = mm.(appModel)

	if len(m.list.Items()) != 2 || m.store.Len() != 2 {
		t.Fatalf("list changed after stale delete: %v", rowTitles(m))
	}
	if !strings.Contains(m.status, "not found") {
		t.Fatalf("expected not found status, got %q", m.status)
	}
}

func TestApp_StrictStaleDeletePanics(t *testing.T) {
	m := newLoadedModel(t, true)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	m.Update(deleteItemMsg{id: model.NewItemID()})
}

func TestApp_SelectionFollowsItemWhenRowsAboveRemoved(t *testing.T) {
	m := newLoadedModel(t, false)
	m.list.Select(1)

	m, _ = press(t, m, 'x')
	row, ok := m.list.SelectedItem().(rowItem)
	if !ok || row.item.ID != amasingID {
		t.Fatalf("expected selection to stay on amasing, got %+v", row)
	}
}

func TestApp_QuitAndHelp(t *testing.T) {
	m := newLoadedModel(t, false)

	m, _ = press(t, m, '?')
	if !m.help.ShowAll {
		t.Fatalf("expected full help")
	}

	_, cmd := press(t, m, 'q')
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
