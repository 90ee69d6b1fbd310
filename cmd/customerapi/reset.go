package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCommand(opts *rootOptions) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored customer",
		Long: `Delete every customer from the configured store and clear the shared cache.

Run it while the server is stopped: a running server keeps its own copy of
the collection and would write it back on the next create. With a shared
cache bucket configured, reset refuses to run while a server holds the
store's cache lease.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return errors.New("refusing to reset without --yes")
			}
			cfg, cleanup, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			d, err := buildDeps(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer d.close()

			n, err := d.svc.Reset(cmd.Context())
			if err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d customers from %s\n", n, cfg.Store.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm deletion")
	return cmd
}
