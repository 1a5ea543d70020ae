package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/gh-releases/internal/service/installer"
	"github.com/oshokin/gh-releases/internal/service/updater"
)

var downloadCmd = &cobra.Command{
	Use:   "download [owner/name]",
	Short: "Check for a newer release and install it over the executable",
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

		if !result.UpdateAvailable() {
			return nil
		}

		return u.Download(ctx)
	},
}
