package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhamidi/arbor/workspace"
)

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-parse files as they change and report the changed ranges",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			out := cmd.OutOrStdout()
			styles := a.styles(out)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := workspace.NewWatcher(a.workspace(root), interval)
			w.OnChange = func(f *workspace.File) {
				status := "parsed"
				if f.Tree.Root().HasError() {
					status = "parsed with errors"
				}
				fmt.Fprintf(out, "%s %s (%s)\n", styles.Path(f.Path), status, f.Language)
				for _, r := range f.Changed {
					fmt.Fprintf(out, "  changed %s\n", r)
				}
			}
			w.OnRemove = func(path string) {
				fmt.Fprintf(out, "%s removed\n", styles.Path(path))
			}
			w.OnError = func(path string, err error) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			}
			w.Start(ctx)
			<-ctx.Done()
			w.Stop()
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Second, "polling interval")

	return cmd
}
