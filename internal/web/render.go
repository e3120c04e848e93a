package web

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"storevec/internal/keyed"
	"storevec/internal/model"

	"github.com/starfederation/datastar-go/datastar"
)

type pageVM struct {
	Title       string
	Intro       template.HTML
	DatastarURL string
	ViewID      string
	Version     uint64
	Loading     bool
	Rows        []rowVM
}

type errorVM struct {
	Title string
	Error string
}

// rowVM is everything a row may see: a copy of the item and the view it
// belongs to. The delete action embeds the id as plain text, so the value
// sent back is the one that was rendered.
type rowVM struct {
	ViewID string
	Item   model.Item
}

func rowsFor(viewID string, items []model.Item) []rowVM {
	out := make([]rowVM, 0, len(items))
	for _, it := range items {
		out = append(out, rowVM{ViewID: viewID, Item: it})
	}
	return out
}

func (s *Server) renderRow(viewID string, it model.Item) (string, error) {
	return s.renderTemplate("row", rowVM{ViewID: viewID, Item: it})
}

func (s *Server) renderRows(viewID string, items []model.Item) (string, error) {
	return s.renderTemplate("rows", rowsFor(viewID, items))
}

// handleViewEvents streams keyed row patches for one page view. The first
// event brings the client in sync with the current list (needed after a
// non-blocking first render or a reconnect); after that only rows whose key
// appeared, disappeared or changed value are patched.
func (s *Server) handleViewEvents(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookupView(w, r)
	if !ok {
		return
	}
	v.attach()
	defer v.detach()

	sse := datastar.NewSSE(w, r)

	st, err := v.storeOrWait(sse.Context())
	if err != nil {
		if sse.Context().Err() != nil {
			return
		}
		s.log.Error("initial load failed", "view", v.id, "err", err)
		html, rerr := s.renderTemplate("load_error", errorVM{Title: pageTitle, Error: err.Error()})
		if rerr == nil {
			_ = sse.PatchElements(html, datastar.WithSelector("#list"), datastar.WithMode(datastar.ElementPatchModeOuter))
		}
		return
	}

	ch, cancel := st.Subscribe()
	defer cancel()

	version, last := st.Snapshot()
	if clientVersion := strings.TrimSpace(r.URL.Query().Get("v")); clientVersion != fmt.Sprint(version) {
		html, err := s.renderRows(v.id, last)
		if err != nil {
			_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
			return
		}
		_ = sse.PatchElements(html, datastar.WithSelector("#items"), datastar.WithMode(datastar.ElementPatchModeInner))
	}

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case c, ok := <-ch:
			if !ok {
				return
			}
			if c.Version <= version {
				continue
			}
			// Diff against what this stream rendered last rather than using
			// c.Patch: a slow stream may have missed intermediate changes.
			p := keyed.Diff(last, c.Items)
			if err := s.patchRows(sse, v.id, p); err != nil {
				_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
				continue
			}
			version, last = c.Version, c.Items
		}
	}
}

func (s *Server) patchRows(sse *datastar.ServerSentEventGenerator, viewID string, p keyed.Patch) error {
	for _, id := range p.Removed {
		if err := sse.PatchElements("", datastar.WithSelector("#"+id.DOMID()), datastar.WithMode(datastar.ElementPatchModeRemove)); err != nil {
			return err
		}
	}
	for _, ins := range p.Added {
		html, err := s.renderRow(viewID, ins.Item)
		if err != nil {
			return err
		}
		if ins.After.IsZero() {
			err = sse.PatchElements(html, datastar.WithSelector("#items"), datastar.WithMode(datastar.ElementPatchModePrepend))
		} else {
			err = sse.PatchElements(html, datastar.WithSelector("#"+ins.After.DOMID()), datastar.WithMode(datastar.ElementPatchModeAfter))
		}
		if err != nil {
			return err
		}
	}
	for _, it := range p.Updated {
		html, err := s.renderRow(viewID, it)
		if err != nil {
			return err
		}
		if err := sse.PatchElements(html, datastar.WithSelector("#"+it.ID.DOMID()), datastar.WithMode(datastar.ElementPatchModeOuter)); err != nil {
			return err
		}
	}
	return nil
}
