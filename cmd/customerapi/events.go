package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	cfnats "github.com/Strob0t/customerapi/internal/adapter/nats"
	"github.com/Strob0t/customerapi/internal/port/messagequeue"
)

func newEventsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Print customer events as they are published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, cleanup, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer cleanup()
			if cfg.NATS.URL == "" {
				return errors.New("nats.url is not configured")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			q, err := cfnats.Connect(ctx, cfg.NATS.URL, cfg.NATS.Stream)
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			var mu sync.Mutex
			out := cmd.OutOrStdout()
			cancel, err := q.Subscribe(ctx, messagequeue.SubjectPrefix+".>",
				func(_ context.Context, subject string, data []byte) error {
					mu.Lock()
					defer mu.Unlock()
					_, err := fmt.Fprintf(out, "%s %s\n", subject, data)
					return err
				})
			if err != nil {
				return err
			}
			defer cancel()

			<-ctx.Done()
			return nil
		},
	}
}
