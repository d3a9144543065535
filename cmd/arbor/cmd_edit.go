package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/arbor/format"
	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/syntax"
	"github.com/dhamidi/arbor/workspace"
)

func newEditCmd(a *app) *cobra.Command {
	var start, end int
	var text string
	var language string
	var write bool

	cmd := &cobra.Command{
		Use:   "edit <file>",
		Short: "Replace a byte range, re-parse incrementally and show how the tree changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := args[0]
			before, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read source: %w", err)
			}
			if end < 0 {
				end = start
			}
			if start < 0 || start > end || end > len(before) {
				return fmt.Errorf("invalid edit range %d:%d for %d bytes", start, end, len(before))
			}
			after := make([]byte, 0, len(before)-(end-start)+len(text))
			after = append(after, before[:start]...)
			after = append(after, text...)
			after = append(after, before[end:]...)

			name, table, err := a.language(language, path, before)
			if err != nil {
				return err
			}
			ws := workspace.New(filepath.Dir(path), workspace.Options{
				Languages:     map[string]*grammar.Table{name: table},
				Extensions:    map[string]string{strings.ToLower(filepath.Ext(path)): name},
				TimeoutMicros: a.cfg.TimeoutMicros,
			})
			key := filepath.Base(path)
			old, err := ws.Update(cmd.Context(), key, before)
			if err != nil {
				return err
			}
			updated, err := ws.Update(cmd.Context(), key, after)
			if err != nil {
				return err
			}

			styles := a.styles(out)
			diff, err := format.Diff(key, dump(old.Tree), dump(updated.Tree), styles)
			if err != nil {
				return fmt.Errorf("diff: %w", err)
			}
			if diff == "" {
				fmt.Fprintln(out, "tree unchanged")
			} else {
				fmt.Fprint(out, diff)
			}
			for _, r := range updated.Changed {
				fmt.Fprintf(out, "changed %s\n", r)
			}

			if write {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				if err := os.WriteFile(path, after, info.Mode()); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "first byte to replace")
	cmd.Flags().IntVar(&end, "end", -1, "byte after the last one to replace (default: --start)")
	cmd.Flags().StringVar(&text, "text", "", "replacement text")
	cmd.Flags().StringVarP(&language, "language", "l", "", "language name (default: detect from the file)")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the edited file back")

	return cmd
}

// dump renders a tree without color for diffing.
func dump(tree *syntax.Tree) []byte {
	var buf bytes.Buffer
	format.NewTreePrinter(&buf, format.NewStyles(false)).Print(tree)
	return buf.Bytes()
}
