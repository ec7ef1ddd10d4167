package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"CatalogNotifier/internal/app"
	"CatalogNotifier/internal/config"
	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/logging"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "catalognotifier",
		Short:        "Daily new-book notifications for catalog subscribers",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default $CATALOG_NOTIFIER_CONFIG)")

	root.AddCommand(newServeCmd(opts), newRunCmd(opts), newMigrateCmd(opts), newVersionCmd())
	return root
}

func (o *rootOptions) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format), nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daily schedule and expose /metrics until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Serve(cmd.Context())
		},
	}
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		dateFlag string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the match once for today or for --date, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseDate(dateFlag)
			if err != nil {
				return err
			}

			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if dryRun {
				cfg.Channel.Kind = "log"
			}

			application, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			report, runErr := application.RunOnce(cmd.Context(), day)
			printReport(cmd.OutOrStdout(), report)
			return runErr
		},
	}
	cmd.Flags().StringVar(&dateFlag, "date", "", "catalog date to process (YYYY-MM-DD); defaults to today")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log notifications instead of sending them")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the bookstore tables in the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			return app.Migrate(cmd.Context(), cfg, logger)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "catalognotifier %s (commit: %s)\n", version, commit)
		},
	}
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", value)
	}
	return day, nil
}

func printReport(w io.Writer, r domain.RunReport) {
	if r.Status == "" {
		return
	}
	fmt.Fprintf(w, "run %s date=%s status=%s\n", r.RunID, r.Date.Format(domain.DateLayout), r.Status)
	fmt.Fprintf(w, "  items=%d (batches %d) subscription batches=%d malformed=%d\n",
		r.ItemsScanned, r.ItemBatches, r.SubscriptionBatches, r.MalformedSeen)
	fmt.Fprintf(w, "  matched pairs=%d subscribers=%d sent=%d failed=%d skipped=%d duration=%s\n",
		r.MatchedPairs, r.Subscribers, r.Sent, r.Failed, r.Skipped, r.Duration().Round(time.Millisecond))
	if r.Err != nil && !errors.Is(r.Err, domain.ErrRunInProgress) {
		fmt.Fprintf(w, "  error: %v\n", r.Err)
	}
}
