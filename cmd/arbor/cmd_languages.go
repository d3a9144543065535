package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

func newLanguagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the available languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := make([]string, 0, len(a.languages))
			for name := range a.languages {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				source := "builtin"
				if path, ok := a.cfg.Tables[name]; ok {
					source = path
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, source)
			}
			return nil
		},
	}
}
