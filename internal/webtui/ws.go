package webtui

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/gorilla/websocket"
)

const maxDimension = 1000

// controlMsg is a JSON text frame from the browser. Anything else is input.
type controlMsg struct {
	Type string `json:"type"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		host := strings.TrimSpace(r.Host)
		return strings.Contains(origin, "://"+host)
	},
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	size := initialSize(r.URL.Query(), s.cfg.Cols, s.cfg.Rows)

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ptmx, cmd, cleanup, err := s.startSession(size)
	if err != nil {
		s.log.Error("start terminal session", "err", err)
		_ = conn.WriteMessage(websocket.TextMessage, []byte("failed to start session: "+err.Error()))
		return
	}
	defer cleanup()
	s.log.Info("terminal session started", "pid", cmd.Process.Pid, "cols", size.Cols, "rows", size.Rows, "remote", r.RemoteAddr)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		errCh <- pumpPTYToWS(ptmx, conn)
	}()
	go func() {
		defer wg.Done()
		errCh <- pumpWSToPTY(conn, ptmx)
	}()

	select {
	case <-r.Context().Done():
	case <-errCh:
	}

	// Killing the child ends the PTY read, the read deadline ends the socket
	// read.
	_ = cmd.Process.Kill()
	_ = conn.SetReadDeadline(time.Now())
	wg.Wait()
	s.log.Info("terminal session ended", "pid", cmd.Process.Pid)
}

// initialSize reads the terminal size the page measured before connecting
// (?cols=&rows=). Missing or out of range values fall back to the defaults.
func initialSize(q url.Values, cols, rows uint16) *pty.Winsize {
	size := &pty.Winsize{Cols: cols, Rows: rows}
	if c, ok := dimension(q.Get("cols")); ok {
		size.Cols = c
	}
	if r, ok := dimension(q.Get("rows")); ok {
		size.Rows = r
	}
	return size
}

func dimension(s string) (uint16, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > maxDimension {
		return 0, false
	}
	return uint16(n), true
}

// resizeRequest decodes a {"type":"resize"} text frame. ok is false for
// anything that is not a well formed resize, which is then typed input.
func resizeRequest(data []byte) (*pty.Winsize, bool) {
	if len(data) == 0 || data[0] != '{' {
		return nil, false
	}
	var m controlMsg
	if err := json.Unmarshal(data, &m); err != nil || !strings.EqualFold(strings.TrimSpace(m.Type), "resize") {
		return nil, false
	}
	if m.Cols < 1 || m.Rows < 1 || m.Cols > maxDimension || m.Rows > maxDimension {
		return nil, false
	}
	return &pty.Winsize{Cols: uint16(m.Cols), Rows: uint16(m.Rows)}, true
}

func (s *Server) startSession(size *pty.Winsize) (*os.File, *exec.Cmd, func(), error) {
	cmd := exec.Command(s.cfg.Command, s.cfg.Args...)
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
	)

	ptmx, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	}
	return ptmx, cmd, cleanup, nil
}

func pumpPTYToWS(ptmx *os.File, conn *websocket.Conn) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := ptmx.Read(buf)
		if n > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func pumpWSToPTY(conn *websocket.Conn, ptmx *os.File) error {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if len(data) == 0 {
			continue
		}
		if mt == websocket.TextMessage {
			if size, ok := resizeRequest(data); ok {
				_ = pty.Setsize(ptmx, size)
				continue
			}
		}
		if _, err := ptmx.Write(data); err != nil {
			return err
		}
	}
}
