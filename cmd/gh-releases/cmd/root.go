package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/gh-releases/internal/config"
	"github.com/oshokin/gh-releases/internal/logger"
	"github.com/oshokin/gh-releases/internal/version"
)

var (
	// configPath to the configuration YAML file. Empty means the optional default file.
	configPath string
	// logLevel is the minimum level written to stderr.
	logLevel string

	// rootCmd represents the base command.
	rootCmd = &cobra.Command{
		Use:           "gh-releases",
		Short:         "Serve GitHub releases as a local update feed",
		Long:          "gh-releases finds the newest semantic version tag of a GitHub repository, writes an update manifest and serves it on a loopback feed for the platform updater.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return logger.SetLevelByName(logLevel)
		},
	}
)

// Execute runs the gh-releases CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
}

// loadConfig reads settings, letting an optional owner/name argument override the repository.
func loadConfig(args []string) (*config.Config, error) {
	var repository string
	if len(args) > 0 {
		repository = args[0]
	}

	return config.Load(configPath, config.WithRepository(repository))
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to configuration file (default "+config.DefaultConfigFilename+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(checkCmd, downloadCmd, serveCmd, statusCmd)
}
