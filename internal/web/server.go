package web

import (
	"bufio"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"storevec/internal/liststore"
	"storevec/internal/loader"
	"storevec/internal/metrics"
	"storevec/internal/model"
)

//go:embed templates/*.html
var assetsFS embed.FS

const (
	pageTitle   = "Store Vec Demo"
	datastarURL = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"
)

// ServerConfig holds the settings of the page server.
type ServerConfig struct {
	Addr   string
	Source loader.Source

	// Blocking makes GET / wait for the initial items before sending any
	// bytes (in-order rendering). When false the shell is sent first and the
	// rows are streamed in once the loader resolves.
	Blocking bool

	// StrictDeletes turns a delete of an unknown id into a panic.
	StrictDeletes bool

	// ViewTTL is how long a page view survives without a connected stream.
	ViewTTL time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Server serves the list page, its intents and its live update streams.
// Each GET / creates an independent view with its own loader and store.
type Server struct {
	mu    sync.RWMutex
	cfg   ServerConfig
	tmpl  *template.Template
	views *viewRegistry
	log   *slog.Logger
	met   *metrics.Metrics
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("web: addr is empty")
	}
	if cfg.Source == nil {
		return nil, errors.New("web: source is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}

	tmpl, err := template.New("base").ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	srv := &Server{cfg: cfg, tmpl: tmpl, log: cfg.Logger, met: cfg.Metrics}
	srv.views = newViewRegistry(cfg.ViewTTL, srv.disposeView)
	go srv.views.reapLoop()
	return srv, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

// Close stops background work. Open streams end with their requests.
func (s *Server) Close() {
	s.views.Stop()
}

func (s *Server) cfgSnapshot() ServerConfig {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()
	return cfg
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.met.Handler())
	mux.HandleFunc("GET /api/items", s.handleAPIItems)
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /views/{viewId}", s.handleView)
	mux.HandleFunc("GET /views/{viewId}/events", s.handleViewEvents)
	mux.HandleFunc("GET /views/{viewId}/ws", s.handleViewWS)
	mux.HandleFunc("POST /views/{viewId}/add", s.handleAdd)
	mux.HandleFunc("POST /views/{viewId}/mutate", s.handleMutate)
	mux.HandleFunc("POST /views/{viewId}/delete-first", s.handleDeleteFirst)
	mux.HandleFunc("POST /views/{viewId}/items/{itemId}/delete", s.handleDeleteItem)
	mux.HandleFunc("/", s.handleNotFound)
	return s.recoverer(s.requestLogger(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, "Page not found.\n")
}

// handleAPIItems is the data source exposed as a remote call. Other processes
// (e.g. `storevec tui --source http`) use it as their initial loader.
func (s *Server) handleAPIItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.cfgSnapshot().Source.FetchItems(r.Context())
	if err != nil {
		s.log.Error("fetch items", "err", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

func (s *Server) newView() *view {
	cfg := s.cfgSnapshot()
	opts := []loader.ResourceOption{loader.WithObserver(s.met.ObserveLoad)}
	var res *loader.Resource
	if cfg.Blocking {
		res = loader.NewBlocking(cfg.Source, opts...)
	} else {
		res = loader.New(cfg.Source, opts...)
	}
	res.Start()

	v := s.views.create(res, s.storeFactory())
	s.met.ViewsTotal.Inc()
	s.met.ViewsActive.Inc()
	s.log.Debug("view created", "view", v.id, "blocking", res.Blocking())
	return v
}

func (s *Server) storeFactory() func() *liststore.Store {
	strict := s.cfgSnapshot().StrictDeletes
	return func() *liststore.Store {
		return liststore.New(
			liststore.WithStrictDeletes(strict),
			liststore.WithObserver(func(c liststore.Change) {
				s.met.Mutations.WithLabelValues(string(c.Op)).Inc()
			}),
		)
	}
}

func (s *Server) disposeView(v *view) {
	s.met.ViewsActive.Dec()
	s.log.Debug("view disposed", "view", v.id)
}

func (s *Server) lookupView(w http.ResponseWriter, r *http.Request) (*view, bool) {
	v, err := s.views.get(r.PathValue("viewId"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	v.touch()
	return v, true
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	v := s.newView()
	if !v.resource.Blocking() {
		s.writePage(w, pageVM{
			Title:       pageTitle,
			Intro:       introHTML(),
			DatastarURL: datastarURL,
			ViewID:      v.id,
			Loading:     true,
		})
		return
	}
	s.renderViewPage(w, r, v)
}

// handleView re-renders an existing page view. Form posts without
// JavaScript redirect here.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookupView(w, r)
	if !ok {
		return
	}
	s.renderViewPage(w, r, v)
}

func (s *Server) renderViewPage(w http.ResponseWriter, r *http.Request, v *view) {
	st, err := v.storeOrWait(r.Context())
	if err != nil {
		s.log.Error("initial load failed", "view", v.id, "err", err)
		s.writeLoadError(w, err)
		return
	}
	version, items := st.Snapshot()
	s.writePage(w, pageVM{
		Title:       pageTitle,
		Intro:       introHTML(),
		DatastarURL: datastarURL,
		ViewID:      v.id,
		Version:     version,
		Rows:        rowsFor(v.id, items),
	})
}

func (s *Server) writeLoadError(w http.ResponseWriter, err error) {
	html, rerr := s.renderTemplate("error.html", errorVM{Title: pageTitle, Error: err.Error()})
	if rerr != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = io.WriteString(w, html)
}

func (s *Server) writePage(w http.ResponseWriter, vm pageVM) {
	html, err := s.renderTemplate("page.html", vm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}

// recoverer logs panics (strict deletes raise one on purpose) and answers
// 500 instead of dropping the connection.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rv := recover()
			if rv == nil || rv == http.ErrAbortHandler {
				if rv != nil {
					panic(rv)
				}
				return
			}
			s.log.Error("panic", "path", r.URL.Path, "panic", fmt.Sprint(rv), "stack", string(debug.Stack()))
			http.Error(w, fmt.Sprint(rv), http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}
