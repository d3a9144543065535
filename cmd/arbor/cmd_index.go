package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhamidi/arbor/index"
	"github.com/dhamidi/arbor/query"
)

func newIndexCmd(a *app) *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:   "index <query|@file> [dir]",
		Short: "Store the captures of a query over a directory for searching",
		Long: `Parse every matching file below dir and store the captures of the query
in the index database. Languages the query does not apply to, because it names
node types or fields they lack, are skipped.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			source, err := readQuery(args[0])
			if err != nil {
				return err
			}
			root := "."
			if len(args) == 2 {
				root = args[1]
			}

			ws := a.workspace(root)
			if err := ws.ScanAll(cmd.Context()); err != nil {
				return fmt.Errorf("scan %s: %w", root, err)
			}
			files := ws.Files()

			queries := make(map[string]*query.Query)
			for _, f := range files {
				if _, done := queries[f.Language]; done {
					continue
				}
				q, err := query.New(a.languages[f.Language], source)
				var qerr *query.Error
				switch {
				case err == nil:
				case errors.As(err, &qerr) && qerr.Kind != query.ErrorSyntax && qerr.Kind != query.ErrorPredicate:
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: %v\n", f.Language, err)
				default:
					return fmt.Errorf("compile query for %s: %w", f.Language, err)
				}
				queries[f.Language] = q
			}
			for lang, q := range queries {
				if q == nil {
					delete(queries, lang)
				}
			}

			if database == "" {
				database = a.cfg.Database
			}
			ix, err := index.Open(database, a.cfg.Verbosity >= 6)
			if err != nil {
				return err
			}
			defer ix.Close()
			ix.MatchLimit = a.cfg.MatchLimit

			run, err := ix.Rebuild(cmd.Context(), files, source, queries)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "indexed %d captures from %d files into %s\n", run.Captures, run.Files, database)
			if run.Exceeded {
				fmt.Fprintln(out, "match limit exceeded, some matches were dropped")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&database, "db", "", "index database (default from configuration)")

	return cmd
}
