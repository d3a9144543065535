package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhamidi/arbor/format"
)

func newParseCmd(a *app) *cobra.Command {
	var outputFormat string
	var language string
	var namedOnly bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a file and print its syntax tree",
		Long:  "Parse a file and print its syntax tree. Use - to read standard input.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			src, err := readSource(args[0], cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read source: %w", err)
			}
			_, table, err := a.language(language, args[0], src)
			if err != nil {
				return err
			}
			p, err := a.parser(table)
			if err != nil {
				return err
			}
			defer p.Close()
			tree, err := p.Parse(cmd.Context(), src, nil)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			if tree == nil {
				return fmt.Errorf("parse: timed out after %dµs", a.cfg.TimeoutMicros)
			}

			switch outputFormat {
			case "tree":
				printer := format.NewTreePrinter(out, a.styles(out))
				printer.Width = format.Width(out)
				printer.Anonymous = !namedOnly
				return printer.Print(tree)
			case "sexp":
				_, err := fmt.Fprintln(out, tree.Root().PatternString())
				return err
			case "json":
				return format.NewTreeJSONEncoder(out).Encode(tree)
			default:
				return fmt.Errorf("unknown format: %s", outputFormat)
			}
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "tree", "output format (tree, sexp, json)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "language name (default: detect from the file)")
	cmd.Flags().BoolVar(&namedOnly, "named", false, "print only named nodes in tree format")

	return cmd
}
