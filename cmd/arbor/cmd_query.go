package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/arbor/format"
	"github.com/dhamidi/arbor/query"
)

func newQueryCmd(a *app) *cobra.Command {
	var outputFormat string
	var language string
	var byteRange string
	var maxStartDepth int
	var byCapture bool

	cmd := &cobra.Command{
		Use:   "query <query|@file> <file>...",
		Short: "Run a tree query against files",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			source, err := readQuery(args[0])
			if err != nil {
				return err
			}
			queries := make(map[string]*query.Query)
			enc := format.NewMatchEncoder(out, a.styles(out))
			jsonOut := json.NewEncoder(out)

			c := query.NewCursor()
			defer c.Close()
			if a.cfg.MatchLimit > 0 {
				c.SetMatchLimit(a.cfg.MatchLimit)
			}
			switch {
			case maxStartDepth >= 0:
				c.SetMaxStartDepth(uint32(maxStartDepth))
			case a.cfg.MaxStartDepth > 0:
				c.SetMaxStartDepth(a.cfg.MaxStartDepth)
			}
			if byteRange != "" {
				start, end, err := parseRange(byteRange)
				if err != nil {
					return err
				}
				if err := c.SetByteRange(start, end); err != nil {
					return err
				}
			}

			for _, path := range args[1:] {
				src, err := readSource(path, cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read source: %w", err)
				}
				name, table, err := a.language(language, path, src)
				if err != nil {
					return err
				}
				q, ok := queries[name]
				if !ok {
					q, err = query.New(table, source)
					if err != nil {
						return fmt.Errorf("compile query for %s: %w", name, err)
					}
					queries[name] = q
				}
				p, err := a.parser(table)
				if err != nil {
					return err
				}
				tree, err := p.Parse(cmd.Context(), src, nil)
				p.Close()
				if err != nil {
					return fmt.Errorf("parse %s: %w", path, err)
				}
				if tree == nil {
					return fmt.Errorf("parse %s: timed out", path)
				}

				c.Exec(q, tree.Root())
				for {
					var m *query.Match
					if byCapture {
						var index uint32
						m, index, ok = c.NextCapture()
						if ok {
							single := *m
							single.Captures = m.Captures[index : index+1]
							m = &single
						}
					} else {
						m, ok = c.NextMatch()
					}
					if !ok {
						break
					}
					if outputFormat == "json" {
						if err := jsonOut.Encode(struct {
							Path string `json:"path"`
							format.JSONMatch
						}{path, format.MatchJSON(m)}); err != nil {
							return err
						}
						continue
					}
					if err := enc.Encode(path, m); err != nil {
						return err
					}
				}
				if c.DidExceedMatchLimit() {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: match limit exceeded, some matches were dropped\n", path)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "lines", "output format (lines, json)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "language name (default: detect from each file)")
	cmd.Flags().StringVar(&byteRange, "byte-range", "", "only report matches intersecting START:END")
	cmd.Flags().IntVar(&maxStartDepth, "max-start-depth", -1, "deepest node a match may start at")
	cmd.Flags().BoolVar(&byCapture, "captures", false, "report captures in document order instead of matches")

	return cmd
}

func parseRange(s string) (uint32, uint32, error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid range %q, want START:END", s)
	}
	start, err := strconv.ParseUint(a, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range start: %w", err)
	}
	end, err := strconv.ParseUint(b, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range end: %w", err)
	}
	return uint32(start), uint32(end), nil
}
