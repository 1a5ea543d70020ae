package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oshokin/gh-releases/internal/api/grpc/health"
	"github.com/oshokin/gh-releases/internal/domain/release"
	"github.com/oshokin/gh-releases/internal/logger"
	"github.com/oshokin/gh-releases/internal/service/updater"
)

// Checker runs one release check.
type Checker interface {
	Check(ctx context.Context) (*updater.CheckResult, error)
}

// Options controls the daemon.
type Options struct {
	// HealthAddress is where the gRPC health service listens.
	HealthAddress string
	// Listener replaces HealthAddress with an already bound listener.
	Listener net.Listener
	// Interval is the period between checks.
	Interval time.Duration
	// Timeout bounds a single check. Zero means no bound.
	Timeout time.Duration
	// OnResult is called after every check.
	OnResult func(result *updater.CheckResult, err error)
}

var (
	errNoChecker  = errors.New("checker is not set")
	errNoInterval = errors.New("check interval must be positive")
)

// Run serves health and checks until ctx is done. The first check runs immediately.
func Run(ctx context.Context, checker Checker, opts *Options) error {
	ctx = logger.WithName(ctx, "daemon")

	if checker == nil {
		return errNoChecker
	}

	if opts.Interval <= 0 {
		return errNoInterval
	}

	lis := opts.Listener
	if lis == nil {
		lc := net.ListenConfig{}

		var err error

		lis, err = lc.Listen(ctx, "tcp", opts.HealthAddress)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", opts.HealthAddress, err)
		}
	}

	reporter := health.NewReporter()
	grpcServer := grpc.NewServer()
	reporter.Register(grpcServer)

	logger.InfoKV(ctx, "Health service listening", "address", lis.Addr().String(), "interval", opts.Interval.String())

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down health service")
		reporter.Shutdown()
		grpcServer.GracefulStop()

		return nil
	})

	group.Go(func() error {
		poll(groupCtx, checker, reporter, opts)
		return nil
	})

	err := group.Wait()

	logger.Info(ctx, "Daemon stopped")

	return err
}

// poll checks now and then on every tick until ctx is done.
func poll(ctx context.Context, checker Checker, reporter *health.Reporter, opts *Options) {
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		runCheck(ctx, checker, reporter, opts)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runCheck performs one check and publishes its outcome.
func runCheck(ctx context.Context, checker Checker, reporter *health.Reporter, opts *Options) {
	checkCtx, cancel := ctx, context.CancelFunc(func() {})
	if opts.Timeout > 0 {
		checkCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	defer cancel()

	result, err := checker.Check(checkCtx)

	switch {
	case errors.Is(err, release.ErrCheckInProgress):
		logger.Info(ctx, "Previous check is still running, skipping this tick")
		return
	case ctx.Err() != nil:
		return
	case err != nil:
		logger.ErrorKV(ctx, "Check failed", "error", err)
		reporter.SetUpdateAvailable(false)
	default:
		reporter.SetUpdateAvailable(result.UpdateAvailable())
	}

	if opts.OnResult != nil {
		opts.OnResult(result, err)
	}
}
