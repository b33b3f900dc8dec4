package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Shoaibzaak/visa-docverify/internal/config"
	"github.com/Shoaibzaak/visa-docverify/internal/core/domain"
	"github.com/Shoaibzaak/visa-docverify/internal/infrastructure/queue/nats"
	"github.com/Shoaibzaak/visa-docverify/internal/observability/logging"
)

func newWatchCmd() *cobra.Command {
	var natsURL, subject string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print analysis outcomes published by running docverify services",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if natsURL == "" {
				natsURL = cfg.NATSURL
			}
			if subject == "" {
				subject = cfg.NATSSubject
			}
			if natsURL == "" {
				return errors.New("no NATS server configured; set NATS_URL or --nats-url")
			}

			logger := logging.New(cmd.ErrOrStderr(), "docverify", cfg.LogLevel, "text")
			events, err := nats.NewWithOptions(natsURL, subject, nats.Options{Logger: logger})
			if err != nil {
				return err
			}
			defer events.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			colorCyan.Fprintf(out, "Watching %s on %s\n", subject, natsURL)
			return events.SubscribeDocumentAnalyzed(ctx, func(_ context.Context, event domain.AnalysisEvent) error {
				printEvent(out, event)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL (default from NATS_URL)")
	cmd.Flags().StringVar(&subject, "subject", "", "event subject (default from NATS_SUBJECT)")
	return cmd
}

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the document types accepted by --type",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, t := range domain.DocumentTypes() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", t, t.Label())
			}
		},
	}
}
