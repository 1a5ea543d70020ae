package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/oshokin/gh-releases/internal/api/grpc/health"
	"github.com/oshokin/gh-releases/internal/config"
	"github.com/oshokin/gh-releases/internal/logger"
	"github.com/oshokin/gh-releases/internal/service/common"
)

var (
	// statusAddress overrides the configured health address.
	statusAddress string
	// statusJSON prints raw health responses.
	statusJSON bool

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Ask a running daemon whether an update is announced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			address := statusAddress
			timeout := config.DefaultTimeout

			if address == "" {
				address = config.DefaultHealthAddress

				cfg, err := config.Load(configPath)
				if err != nil {
					logger.DebugKV(ctx, "Using the default health address", "reason", err)
				} else {
					address = cfg.HealthAddress
					timeout = cfg.Timeout
				}
			}

			client, err := common.Dial(ctx, address, common.WithCallTimeout(timeout))
			if err != nil {
				return err
			}

			defer func() {
				_ = client.Close()
			}()

			daemonStatus, err := client.Status(ctx, "")
			if err != nil {
				return err
			}

			feedStatus, err := client.Status(ctx, health.FeedService)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if statusJSON {
				for _, resp := range []*healthpb.HealthCheckResponse{daemonStatus, feedStatus} {
					data, marshalErr := protojson.Marshal(resp)
					if marshalErr != nil {
						return fmt.Errorf("marshal status: %w", marshalErr)
					}

					_, _ = fmt.Fprintln(out, string(data))
				}

				return nil
			}

			_, _ = fmt.Fprintf(out, "%s%s\n", color.CyanString("daemon: "), daemonStatus.GetStatus())

			if feedStatus.GetStatus() == healthpb.HealthCheckResponse_SERVING {
				_, _ = fmt.Fprintf(out, "%s%s\n", color.GreenString("feed: "), "update available")
			} else {
				_, _ = fmt.Fprintf(out, "%s%s\n", color.YellowString("feed: "), "no update")
			}

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	statusCmd.Flags().StringVar(&statusAddress, "address", "", "daemon health address (default from configuration)")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print raw health responses as JSON")
}
