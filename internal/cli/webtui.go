package cli

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storevec/internal/config"
	"storevec/internal/logging"
	"storevec/internal/webtui"

	"github.com/spf13/cobra"
)

func newWebTUICmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "webtui",
		Short: "Run the terminal list in your browser (PTY + WebSocket)",
		Long: strings.TrimSpace(`
Serve the TUI over the web through a server-side PTY and xterm.js.

Each browser tab starts its own ` + "`storevec tui`" + ` process, so every tab has its
own list, seeded from the configured source.
`),
		Example: strings.TrimSpace(`
storevec webtui --addr 127.0.0.1:3001
storevec --source sqlite --sqlite-path ./items.db webtui
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := logging.New(logging.Config{
				Level:  app.Cfg.LogLevel,
				Format: app.Cfg.LogFormat,
				Out:    cmd.ErrOrStderr(),
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeLog()

			srv, err := webtui.NewServer(webtui.ServerConfig{
				Addr:   addr,
				Args:   childTUIArgs(app.ConfigFile, app.Cfg),
				Logger: log,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", srv.Addr())
			if err != nil {
				return writeErr(cmd, err)
			}
			url := "http://" + ln.Addr().String() + "/"

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      ln.Addr().String(),
					"url":       url,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "storevec webtui running at %s\n", url)

			hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				_ = hs.Close()
			}()
			if err := hs.Serve(ln); err != nil && err != http.ErrServerClosed {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envOr("STOREVEC_WEBTUI_ADDR", "127.0.0.1:3001"), "Bind address (host:port or :port)")
	return cmd
}

// childTUIArgs forwards the resolved settings to the per-tab TUI process so
// env and config file lookups in the child cannot disagree with the parent.
func childTUIArgs(configFile string, cfg config.Config) []string {
	args := []string{"tui",
		"--source", cfg.Source,
		"--blocking=" + strconv.FormatBool(cfg.Blocking),
		"--strict=" + strconv.FormatBool(cfg.StrictDeletes),
		"--fetch-delay", cfg.FetchDelay.String(),
	}
	if f := strings.TrimSpace(configFile); f != "" {
		args = append(args, "--config", f)
	}
	if cfg.SQLitePath != "" {
		args = append(args, "--sqlite-path", cfg.SQLitePath)
	}
	if cfg.RemoteURL != "" {
		args = append(args, "--remote-url", cfg.RemoteURL)
	}
	return args
}
