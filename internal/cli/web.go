package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"storevec/internal/logging"
	"storevec/internal/metrics"
	"storevec/internal/web"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the list page over HTTP (Datastar SSE + websocket)",
		Long: strings.TrimSpace(`
Serve the demo page. Every GET / opens a page view with its own list, seeded
from the configured source. Rows are patched in place by key as the list
changes; nothing else on the page is re-rendered.
`),
		Example: strings.TrimSpace(`
storevec serve --addr 127.0.0.1:3000
storevec serve --blocking=false --fetch-delay 2s
STOREVEC_SOURCE=http STOREVEC_REMOTE_URL=http://127.0.0.1:3000 storevec serve --addr :3001
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Cfg

			log, closeLog, err := logging.New(logging.Config{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
				Out:    cmd.ErrOrStderr(),
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeLog()

			src, err := buildSource(cfg)
			if err != nil {
				return writeErr(cmd, err)
			}

			srv, err := web.NewServer(web.ServerConfig{
				Addr:          cfg.Addr,
				Source:        src,
				Blocking:      cfg.Blocking,
				StrictDeletes: cfg.StrictDeletes,
				ViewTTL:       cfg.ViewTTL,
				Logger:        log,
				Metrics:       metrics.New(),
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer srv.Close()

			ln, err := net.Listen("tcp", srv.Addr())
			if err != nil {
				return writeErr(cmd, err)
			}
			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"url":       url,
					"source":    cfg.Source,
					"blocking":  cfg.Blocking,
					"strict":    cfg.StrictDeletes,
					"pid":       os.Getpid(),
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "storevec running at %s (source=%s blocking=%t)\n", url, cfg.Source, cfg.Blocking)

			hs := &http.Server{
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() { errCh <- hs.Serve(ln) }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return writeErr(cmd, err)
			case <-cmd.Context().Done():
			}

			log.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := hs.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", "127.0.0.1:3000", "Bind address (host:port or :port)")
	cmd.Flags().Duration("view-ttl", 2*time.Minute, "Drop page views with no open stream after this long")
	return cmd
}
