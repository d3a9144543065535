package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newTableCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Inspect and export grammar tables",
	}
	cmd.AddCommand(newTableDumpCmd(a))
	cmd.AddCommand(newTableInfoCmd(a))
	return cmd
}

func newTableDumpCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "dump <language>",
		Short: "Write a language's table as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, ok := a.languages[args[0]]
			if !ok {
				return fmt.Errorf("unknown language %q", args[0])
			}
			if output == "" {
				return table.Save(cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := table.Save(f); err != nil {
				f.Close()
				return fmt.Errorf("write table: %w", err)
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of standard output")

	return cmd
}

func newTableInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <language>",
		Short: "Summarize a language's table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, ok := a.languages[args[0]]
			if !ok {
				return fmt.Errorf("unknown language %q", args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name\t%s\n", table.Name)
			fmt.Fprintf(out, "version\t%d\n", table.Version)
			fmt.Fprintf(out, "symbols\t%d\n", table.SymbolCount())
			fmt.Fprintf(out, "tokens\t%d\n", table.TokenCount)
			fmt.Fprintf(out, "fields\t%d\n", table.FieldCount())
			fmt.Fprintf(out, "states\t%d\n", table.StateCount())
			for _, super := range table.Supertypes() {
				fmt.Fprintf(out, "supertype\t%s\t%d subtypes\n", table.SymbolName(super), len(table.SubtypesOf(super)))
			}
			return nil
		},
	}
}
