package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/gh-releases/internal/service/daemon"
	"github.com/oshokin/gh-releases/internal/service/installer"
	"github.com/oshokin/gh-releases/internal/service/updater"
)

var serveCmd = &cobra.Command{
	Use:   "serve [owner/name]",
	Short: "Check periodically and report the feed state over gRPC health",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}

		consumer, err := installer.New(cfg.StorageDir, installer.WithExecutable(cfg.Executable))
		if err != nil {
			return err
		}

		u, err := updater.NewFromConfig(cfg, consumer)
		if err != nil {
			return err
		}

		defer func() {
			_ = u.Close(context.WithoutCancel(ctx))
		}()

		options := &daemon.Options{
			HealthAddress: cfg.HealthAddress,
			Interval:      cfg.CheckInterval,
			Timeout:       cfg.Timeout,
			OnResult: func(result *updater.CheckResult, err error) {
				if err == nil {
					printResult(cmd.OutOrStdout(), result)
				}
			},
		}

		return daemon.Run(ctx, u, options)
	},
}
