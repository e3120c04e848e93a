package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"storevec/internal/docs"
	"storevec/internal/keyed"
	"storevec/internal/liststore"
	"storevec/internal/loader"
	"storevec/internal/logging"
	"storevec/internal/model"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const appTitle = "Store Vec Demo"

type loadState int

const (
	loadPending loadState = iota
	loadReady
	loadFailed
)

type loadedMsg struct {
	items []model.Item
	err   error
}

// deleteItemMsg carries the id of the row that was selected when the delete
// key was pressed, not whatever is selected when the message is handled.
type deleteItemMsg struct {
	id model.ItemID
}

type appModel struct {
	res   *loader.Resource
	store *liststore.Store
	log   *slog.Logger

	state   loadState
	loadErr error

	// rendered is what the list currently shows; row updates are keyed diffs
	// against it.
	rendered []model.Item

	list    list.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	width  int
	height int
	status string
}

func newAppModel(res *loader.Resource, store *liststore.Store, log *slog.Logger) appModel {
	if log == nil {
		log = logging.Discard()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	m := appModel{
		res:     res,
		store:   store,
		log:     log,
		list:    newRowList(nil, 80, 10),
		spinner: sp,
		help:    help.New(),
		keys:    defaultKeyMap(),
		width:   80,
		height:  24,
	}
	m.resize()
	return m
}

func (m appModel) Init() tea.Cmd {
	if m.state != loadPending {
		return nil
	}
	return tea.Batch(m.spinner.Tick, loadCmd(m.res))
}

func loadCmd(res *loader.Resource) tea.Cmd {
	return func() tea.Msg {
		items, err := res.Get(context.Background())
		return loadedMsg{items: items, err: err}
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case loadedMsg:
		m.applyLoad(msg.items, msg.err)
		return m, nil

	case spinner.TickMsg:
		if m.state != loadPending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case deleteItemMsg:
		if m.state != loadReady {
			return m, nil
		}
		if err := m.store.DeleteByID(msg.id); err != nil {
			var nf *liststore.NotFoundError
			if errors.As(err, &nf) {
				m.log.Warn("delete of unknown item", "id", nf.ID)
			}
			m.status = err.Error()
			return m, nil
		}
		m.log.Debug("item deleted", "id", msg.id)
		m.status = ""
		cmd := m.syncRows()
		return m, cmd

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil
	}

	if m.state != loadReady {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Add):
		it := m.store.Add()
		m.log.Debug("item added", "id", it.ID)
		m.status = ""
		cmd := m.syncRows()
		return m, cmd
	case key.Matches(msg, m.keys.Mutate):
		m.store.MutateSecondToLast()
		m.status = ""
		cmd := m.syncRows()
		return m, cmd
	case key.Matches(msg, m.keys.DeleteFirst):
		m.store.DeleteFirst()
		m.status = ""
		cmd := m.syncRows()
		return m, cmd
	case key.Matches(msg, m.keys.Delete):
		row, ok := m.list.SelectedItem().(rowItem)
		if !ok {
			return m, nil
		}
		id := row.item.ID
		return m, func() tea.Msg { return deleteItemMsg{id: id} }
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *appModel) applyLoad(items []model.Item, err error) {
	if err == nil {
		err = m.store.Initialize(items)
	}
	if err != nil {
		m.state = loadFailed
		m.loadErr = err
		m.log.Error("initial load failed", "err", err)
		return
	}
	m.state = loadReady
	m.syncRows()
}

// syncRows brings the list in line with the store by applying the keyed diff
// between what is shown and the store's current items. Rows keep their
// identity across edits, and the selection follows its item when rows above
// it are removed.
func (m *appModel) syncRows() tea.Cmd {
	_, next := m.store.Snapshot()
	p := keyed.Diff(m.rendered, next)
	if p.Empty() {
		return nil
	}

	var selected model.ItemID
	if row, ok := m.list.SelectedItem().(rowItem); ok {
		selected = row.item.ID
	}
	prevIndex := m.list.Index()

	var cmds []tea.Cmd
	for _, id := range p.Removed {
		if idx := m.rowIndex(id); idx >= 0 {
			m.list.RemoveItem(idx)
		}
	}
	for _, ins := range p.Added {
		idx := 0
		if !ins.After.IsZero() {
			idx = m.rowIndex(ins.After) + 1
		}
		cmds = append(cmds, m.list.InsertItem(idx, rowItem{item: ins.Item}))
	}
	for _, it := range p.Updated {
		if idx := m.rowIndex(it.ID); idx >= 0 {
			cmds = append(cmds, m.list.SetItem(idx, rowItem{item: it}))
		}
	}
	m.rendered = next

	n := len(m.list.Items())
	switch {
	case n == 0:
	case !selected.IsZero() && m.rowIndex(selected) >= 0:
		m.list.Select(m.rowIndex(selected))
	case prevIndex >= n:
		m.list.Select(n - 1)
	default:
		m.list.Select(prevIndex)
	}
	return tea.Batch(cmds...)
}

func (m appModel) rowIndex(id model.ItemID) int {
	for i, li := range m.list.Items() {
		if r, ok := li.(rowItem); ok && r.item.ID == id {
			return i
		}
	}
	return -1
}

func (m *appModel) resize() {
	h := m.height - lipgloss.Height(m.headerView()) - lipgloss.Height(m.footerView()) - 2
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width, h)
	m.help.Width = m.width
}

func (m appModel) headerView() string {
	title := styleTitle().Render(appTitle)
	intro := renderMarkdown(docs.Intro(), m.width)
	return title + "\n\n" + intro
}

func (m appModel) footerView() string {
	var b strings.Builder
	if m.status != "" {
		b.WriteString(styleError().Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m appModel) View() string {
	var body string
	switch m.state {
	case loadPending:
		body = m.spinner.View() + " " + styleMuted().Render("Loading…")
	case loadFailed:
		body = styleError().Render(fmt.Sprintf("Failed to load items: %v", m.loadErr))
	default:
		if len(m.list.Items()) == 0 {
			body = styleMuted().Render("(empty)")
		} else {
			body = m.list.View()
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		"",
		body,
		"",
		m.footerView(),
	)
}
