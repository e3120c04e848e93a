package cli

import (
	"fmt"
	"os"
	"strings"

	"storevec/internal/config"
	"storevec/internal/format"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type App struct {
	ConfigFile string
	PrettyJSON bool
	Format     string

	// Cfg is resolved in PersistentPreRunE from flags, STOREVEC_* env,
	// storevec.yaml and defaults, in that order.
	Cfg config.Config
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "storevec",
		Short:        "Keyed list store demo (web + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Serve the demo page on localhost:3000
  storevec serve

  # Same list in the terminal
  storevec tui

  # Print the initial items as text
  storevec items fetch --format text

  # Load items from a SQLite file instead of the built-in sample
  storevec items seed --sqlite-path ./items.db
  storevec serve --source sqlite --sqlite-path ./items.db
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(app.ConfigFile, cmd.Flags())
		if err != nil {
			return writeErr(cmd, err)
		}
		app.Cfg = cfg
		return nil
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.ConfigFile, "config", envOr("STOREVEC_CONFIG", ""), "Path to storevec.yaml (default: ./storevec.yaml or ~/.storevec/storevec.yaml)")
	pf.BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON/EDN output")
	pf.StringVar(&app.Format, "format", envOr("STOREVEC_FORMAT", "json"), "Output format (json|edn|text)")

	pf.String("source", config.SourceSample, "Initial item source (sample|sqlite|http)")
	pf.String("sqlite-path", "", "SQLite file for --source sqlite")
	pf.String("remote-url", "", "Base URL of a storevec server for --source http")
	pf.Duration("fetch-delay", 0, "Artificial latency added to the initial fetch")
	pf.Bool("blocking", true, "Wait for the initial items before rendering anything")
	pf.Bool("strict", false, "Panic when a delete targets an id that is not in the list")
	pf.String("log-level", "info", "Log level (debug|info|warn|error)")
	pf.String("log-format", "text", "Log format (text|json)")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newWebTUICmd(app))
	cmd.AddCommand(newItemsCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newVersionCmd(app))

	return cmd
}

// flagKeys maps flag names to config keys where they differ in spelling.
var flagKeys = map[string]string{
	"addr":        config.KeyAddr,
	"source":      config.KeySource,
	"sqlite-path": config.KeySQLitePath,
	"remote-url":  config.KeyRemoteURL,
	"fetch-delay": config.KeyFetchDelay,
	"blocking":    config.KeyBlocking,
	"strict":      config.KeyStrictDeletes,
	"log-level":   config.KeyLogLevel,
	"log-format":  config.KeyLogFormat,
	"view-ttl":    config.KeyViewTTL,
}

func resolveConfig(file string, flags *pflag.FlagSet) (config.Config, error) {
	v, err := config.NewViper(file)
	if err != nil {
		return config.Config{}, err
	}
	if err := bindFlags(v, flags); err != nil {
		return config.Config{}, err
	}
	return config.Load(v)
}

// bindFlags lets explicitly set flags win over env, file and defaults.
// Unset flags are not bound so their defaults never shadow the config file.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = v.BindPFlag(key, f)
	})
	return err
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
