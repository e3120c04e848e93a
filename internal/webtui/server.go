// Package webtui serves the terminal list in a browser: each websocket gets
// its own `storevec tui` process on a server-side PTY, rendered by xterm.js.
package webtui

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

//go:embed templates/*.html
var assetsFS embed.FS

const (
	xtermVersion    = "5.5.0"
	xtermFitVersion = "0.10.0"
)

// ServerConfig configures the terminal server.
type ServerConfig struct {
	Addr string

	// Command is the program started per connection; empty means this
	// executable. Args are passed as is (normally "tui" plus config flags).
	Command string
	Args    []string

	// Cols and Rows size the PTY when the page does not report its own
	// size. Zero means 100x30.
	Cols uint16
	Rows uint16

	Logger *slog.Logger
}

// Server bridges browser terminals to per-connection TUI processes.
type Server struct {
	cfg  ServerConfig
	tmpl *template.Template
	log  *slog.Logger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("webtui: missing addr")
	}
	if strings.TrimSpace(cfg.Command) == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, err
		}
		cfg.Command = exe
	}
	if cfg.Cols == 0 {
		cfg.Cols = 100
	}
	if cfg.Rows == 0 {
		cfg.Rows = 30
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	tmpl, err := template.ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, tmpl: tmpl, log: cfg.Logger}, nil
}

func (s *Server) Addr() string {
	return strings.TrimSpace(s.cfg.Addr)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/terminal", http.StatusFound)
	})
	mux.HandleFunc("GET /terminal", s.handleTerminal)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

type terminalVM struct {
	Title           string
	XtermVersion    string
	XtermFitVersion string
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	vm := terminalVM{
		Title:           "Store Vec Demo (terminal)",
		XtermVersion:    xtermVersion,
		XtermFitVersion: xtermFitVersion,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "terminal.html", vm); err != nil {
		s.log.Error("render terminal page", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
