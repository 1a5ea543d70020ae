package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/gh-releases/internal/logger"
	"github.com/oshokin/gh-releases/internal/service/installer"
	"github.com/oshokin/gh-releases/internal/service/updater"
)

var (
	// waitForSignal keeps the feed server running after the check.
	waitForSignal bool

	checkCmd = &cobra.Command{
		Use:   "check [owner/name]",
		Short: "Check for a newer release and announce it on the local feed",
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

			checkCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()

			result, err := u.Check(checkCtx)
			if err != nil {
				return err
			}

			printResult(cmd.OutOrStdout(), result)

			if waitForSignal && result.UpdateAvailable() {
				logger.Info(ctx, "Serving the feed, press Ctrl+C to stop")
				<-ctx.Done()
			}

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	checkCmd.Flags().BoolVar(&waitForSignal, "wait", false, "keep serving the feed until interrupted")
}
