package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"storevec/internal/keyed"
	"storevec/internal/liststore"
	"storevec/internal/model"

	"github.com/gorilla/websocket"
)

// wsFrame is sent server -> client.
type wsFrame struct {
	Type    string       `json:"type"`
	Version uint64       `json:"version,omitempty"`
	Op      string       `json:"op,omitempty"`
	Items   []model.Item `json:"items,omitempty"`
	Patch   *keyed.Patch `json:"patch,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// wsIntent is sent client -> server.
type wsIntent struct {
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		host := strings.TrimSpace(r.Host)
		return strings.Contains(origin, "://"+host)
	},
}

// handleViewWS is the JSON transport for a page view: a snapshot frame, then
// one change frame per store update. Intents read from the socket go through
// the same store operations as the HTTP intent routes.
func (s *Server) handleViewWS(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookupView(w, r)
	if !ok {
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	v.attach()
	defer v.detach()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan wsFrame, 16)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	// Single writer: gorilla connections allow one concurrent writer. Either
	// pump ending cancels ctx, which releases every send on out.
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		errCh <- pumpFramesToWS(ctx, out, conn)
	}()

	st, err := v.storeOrWait(ctx)
	if err != nil {
		if ctx.Err() == nil {
			_ = conn.WriteJSON(wsFrame{Type: "error", Error: err.Error()})
		}
		cancel()
		wg.Wait()
		return
	}

	ch, unsubscribe := st.Subscribe()
	defer unsubscribe()

	version, last := st.Snapshot()
	if sendFrame(ctx, out, wsFrame{Type: "snapshot", Version: version, Items: last}) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			errCh <- s.pumpWSIntents(ctx, conn, v, st, out)
		}()
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-errCh:
			break loop
		case c, ok := <-ch:
			if !ok {
				break loop
			}
			if c.Version <= version {
				continue
			}
			p := keyed.Diff(last, c.Items)
			version, last = c.Version, c.Items
			if !sendFrame(ctx, out, wsFrame{Type: "change", Version: c.Version, Op: string(c.Op), Patch: &p}) {
				break loop
			}
		}
	}
	cancel()
	// Unblock the reader.
	_ = conn.SetReadDeadline(time.Now())
	wg.Wait()
}

func pumpFramesToWS(ctx context.Context, out <-chan wsFrame, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return ctx.Err()
		case f := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(f); err != nil {
				return err
			}
		}
	}
}

func (s *Server) pumpWSIntents(ctx context.Context, conn *websocket.Conn, v *view, st *liststore.Store, out chan<- wsFrame) error {
	for {
		var in wsIntent
		if err := conn.ReadJSON(&in); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				if !sendFrame(ctx, out, wsFrame{Type: "error", Error: err.Error()}) {
					return ctx.Err()
				}
				continue
			}
			return err
		}
		if err := s.applyIntent(v, st, in); err != nil {
			if !sendFrame(ctx, out, wsFrame{Type: "error", Error: err.Error()}) {
				return ctx.Err()
			}
		}
	}
}

func sendFrame(ctx context.Context, out chan<- wsFrame, f wsFrame) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

var errUnknownAction = errors.New("unknown action")

// applyIntent runs on the socket's reader goroutine, outside the HTTP
// recoverer, so a strict-delete panic is logged and reported as an error
// frame here.
func (s *Server) applyIntent(v *view, st *liststore.Store, in wsIntent) (err error) {
	defer func() {
		if rv := recover(); rv != nil {
			s.log.Error("panic", "view", v.id, "action", in.Action, "panic", fmt.Sprint(rv))
			err = fmt.Errorf("%v", rv)
		}
	}()
	switch strings.TrimSpace(in.Action) {
	case "add":
		st.Add()
	case "mutate":
		st.MutateSecondToLast()
	case "delete-first":
		st.DeleteFirst()
	case "delete":
		id, err := model.ParseItemID(in.ID)
		if err != nil {
			return err
		}
		if err := st.DeleteByID(id); err != nil {
			if errors.Is(err, liststore.ErrItemNotFound) {
				s.met.DeleteMisses.Inc()
				s.log.Warn("delete of unknown item", "view", v.id, "id", id)
			}
			return err
		}
	default:
		return errUnknownAction
	}
	return nil
}
