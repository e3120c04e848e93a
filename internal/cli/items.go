package cli

import (
	"errors"
	"fmt"
	"strings"

	"storevec/internal/config"
	"storevec/internal/loader"
	"storevec/internal/model"

	"github.com/spf13/cobra"
)

func newItemsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Inspect and seed the initial item source",
	}
	cmd.AddCommand(newItemsFetchCmd(app))
	cmd.AddCommand(newItemsSeedCmd(app))
	return cmd
}

type itemsData struct {
	Source string       `json:"source"`
	Count  int          `json:"count"`
	Items  []model.Item `json:"items"`
}

type itemsEnvelope struct {
	Data itemsData `json:"data"`
}

// TextLines renders one "<value> (<id>)" row per item for --format text.
func (e itemsEnvelope) TextLines() []string {
	out := make([]string, 0, len(e.Data.Items))
	for _, it := range e.Data.Items {
		out = append(out, fmt.Sprintf("%s (%s)", it.Value, it.ID))
	}
	return out
}

func newItemsFetchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Run the initial loader once and print its items",
		Example: strings.TrimSpace(`
storevec items fetch
storevec items fetch --format text
storevec items fetch --source http --remote-url http://127.0.0.1:3000 --format edn
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := buildSource(app.Cfg)
			if err != nil {
				return writeErr(cmd, err)
			}
			items, err := src.FetchItems(cmd.Context())
			if err != nil {
				return writeErr(cmd, fmt.Errorf("fetch items: %w", err))
			}
			if items == nil {
				items = []model.Item{}
			}
			return writeOut(cmd, app, itemsEnvelope{Data: itemsData{
				Source: app.Cfg.Source,
				Count:  len(items),
				Items:  items,
			}})
		},
	}
}

var errSeedNeedsPath = errors.New("items seed: missing --sqlite-path")

func newItemsSeedCmd(app *App) *cobra.Command {
	var values []string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the items in a SQLite source",
		Example: strings.TrimSpace(`
storevec items seed --sqlite-path ./items.db
storevec items seed --sqlite-path ./items.db --value one --value two --value three
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(app.Cfg.SQLitePath)
			if path == "" {
				return writeErr(cmd, errSeedNeedsPath)
			}

			items := make([]model.Item, 0, len(values))
			for _, v := range values {
				items = append(items, model.Item{ID: model.NewItemID(), Value: v})
			}

			src := loader.SQLiteSource{Path: path}
			if err := src.Seed(cmd.Context(), items); err != nil {
				return writeErr(cmd, fmt.Errorf("seed %s: %w", path, err))
			}
			return writeOut(cmd, app, itemsEnvelope{Data: itemsData{
				Source: config.SourceSQLite,
				Count:  len(items),
				Items:  items,
			}})
		},
	}

	cmd.Flags().StringArrayVar(&values, "value", []string{"great", "amasing"}, "Item value (repeatable, in order)")
	return cmd
}
