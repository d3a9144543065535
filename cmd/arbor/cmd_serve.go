package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhamidi/arbor/index"
	"github.com/dhamidi/arbor/ui"
	"github.com/dhamidi/arbor/workspace"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	var withIndex bool

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server. With a directory, its files are parsed, kept up to
date by polling and served under /files.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := ui.Options{
				Languages:     a.languages,
				TimeoutMicros: a.cfg.TimeoutMicros,
				MatchLimit:    a.cfg.MatchLimit,
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if len(args) == 1 {
				ws := a.workspace(args[0])
				w := workspace.NewWatcher(ws, 2*time.Second)
				w.OnError = func(path string, err error) {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				}
				w.Start(ctx)
				defer w.Stop()
				opts.Workspace = ws
			}
			if withIndex {
				if _, err := os.Stat(a.cfg.Database); err != nil {
					return fmt.Errorf("open index: %w", err)
				}
				ix, err := index.Open(a.cfg.Database, false)
				if err != nil {
					return err
				}
				defer ix.Close()
				opts.Index = ix
			}

			server, err := ui.NewServer(opts)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			displayAddr := addr
			if strings.HasPrefix(addr, ":") {
				displayAddr = "localhost" + addr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Starting server at http://%s\n", displayAddr)

			srv := &http.Server{Addr: addr, Handler: server}
			go func() {
				<-ctx.Done()
				srv.Close()
			}()
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "address to listen on")
	cmd.Flags().BoolVar(&withIndex, "index", false, "serve /search from the index database")

	return cmd
}
