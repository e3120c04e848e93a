package cli

import (
	"strings"

	"storevec/internal/logging"
	"storevec/internal/tui"

	"github.com/spf13/cobra"
)

func newTUICmd(app *App) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the list in the terminal",
		Example: strings.TrimSpace(`
storevec tui
storevec tui --blocking=false --fetch-delay 1s --log-file /tmp/storevec.log
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Cfg

			// Logs would corrupt the alt screen, so they are dropped unless a
			// file is given.
			log := logging.Discard()
			if strings.TrimSpace(logFile) != "" {
				l, closeLog, err := logging.New(logging.Config{
					Level:  cfg.LogLevel,
					Format: cfg.LogFormat,
					File:   logFile,
				})
				if err != nil {
					return writeErr(cmd, err)
				}
				defer closeLog()
				log = l
			}

			res, err := newResource(cfg)
			if err != nil {
				return writeErr(cmd, err)
			}
			return runTUI(cmd.Context(), tui.Options{
				Resource:      res,
				StrictDeletes: cfg.StrictDeletes,
				Logger:        log,
			})
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", envOr("STOREVEC_LOG_FILE", ""), "Append logs to this file")
	return cmd
}

// runTUI is swapped out in tests, which have no terminal.
var runTUI = tui.Run
