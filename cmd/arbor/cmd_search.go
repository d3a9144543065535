package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dhamidi/arbor/index"
)

func newSearchCmd(a *app) *cobra.Command {
	var filter index.Filter
	var database string
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the captures stored by index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if database == "" {
				database = a.cfg.Database
			}
			ix, err := index.Open(database, a.cfg.Verbosity >= 6)
			if err != nil {
				return err
			}
			defer ix.Close()

			captures, err := ix.Search(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(captures)
			}
			styles := a.styles(out)
			for _, c := range captures {
				loc := fmt.Sprintf("%s:%d:%d:", c.Path, c.StartRow+1, c.StartColumn+1)
				fmt.Fprintf(out, "%s @%s %s\n", styles.Path(loc), c.Name, strconv.Quote(c.Text))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Name, "name", "", "capture name")
	cmd.Flags().StringVar(&filter.Text, "text", "", "captured text, % and _ are wildcards")
	cmd.Flags().StringVarP(&filter.Language, "language", "l", "", "language name")
	cmd.Flags().StringVar(&filter.PathPrefix, "path", "", "directory to search below")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of results")
	cmd.Flags().StringVar(&database, "db", "", "index database (default from configuration)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "lines", "output format (lines, json)")

	return cmd
}
