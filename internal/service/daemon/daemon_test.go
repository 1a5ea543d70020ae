package daemon

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/gh-releases/internal/api/grpc/health"
	"github.com/oshokin/gh-releases/internal/domain/release"
	"github.com/oshokin/gh-releases/internal/service/common"
	"github.com/oshokin/gh-releases/internal/service/updater"
)

type scriptedChecker struct {
	calls   atomic.Int32
	outcome func(call int32) (*updater.CheckResult, error)
}

func (c *scriptedChecker) Check(context.Context) (*updater.CheckResult, error) {
	return c.outcome(c.calls.Add(1))
}

func startDaemon(t *testing.T, checker Checker, interval time.Duration, onResult func(*updater.CheckResult, error)) (string, func() error) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- Run(ctx, checker, &Options{Listener: lis, Interval: interval, OnResult: onResult})
	}()

	return lis.Addr().String(), func() error {
		cancel()

		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			return errors.New("daemon did not stop")
		}
	}
}

func feedStatus(t *testing.T, client *common.Client) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()

	resp, err := client.Status(context.Background(), health.FeedService)
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN
	}

	return resp.GetStatus()
}

// TestRun_PublishesCheckOutcome follows the feed status across checks.
func TestRun_PublishesCheckOutcome(t *testing.T) {
	t.Parallel()

	checker := &scriptedChecker{
		outcome: func(call int32) (*updater.CheckResult, error) {
			if call == 1 {
				return &updater.CheckResult{Status: release.StatusUpdateAvailable}, nil
			}

			return nil, release.ErrClone
		},
	}

	var (
		mu      sync.Mutex
		results []error
	)

	addr, stop := startDaemon(t, checker, 50*time.Millisecond, func(_ *updater.CheckResult, err error) {
		mu.Lock()
		defer mu.Unlock()

		results = append(results, err)
	})

	client, err := common.Dial(context.Background(), addr, common.WithCallTimeout(time.Second))
	require.NoError(t, err)

	defer client.Close()

	// The first check announces an update, later ones fail and withdraw it.
	require.Eventually(t, func() bool {
		return checker.calls.Load() >= 2 && feedStatus(t, client) == healthpb.HealthCheckResponse_NOT_SERVING
	}, 5*time.Second, 10*time.Millisecond)

	resp, err := client.Status(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	require.NoError(t, stop())

	mu.Lock()
	defer mu.Unlock()

	require.NoError(t, results[0])
	require.ErrorIs(t, results[1], release.ErrClone)
}

// TestRun_ChecksImmediately does not wait for the first tick.
func TestRun_ChecksImmediately(t *testing.T) {
	t.Parallel()

	checker := &scriptedChecker{
		outcome: func(int32) (*updater.CheckResult, error) {
			return &updater.CheckResult{Status: release.StatusUpdateAvailable}, nil
		},
	}

	addr, stop := startDaemon(t, checker, time.Hour, nil)

	client, err := common.Dial(context.Background(), addr, common.WithCallTimeout(time.Second))
	require.NoError(t, err)

	defer client.Close()

	require.Eventually(t, func() bool {
		return feedStatus(t, client) == healthpb.HealthCheckResponse_SERVING
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, stop())
	require.Equal(t, int32(1), checker.calls.Load())
}

// TestRun_Validation rejects a missing checker or interval.
func TestRun_Validation(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Run(context.Background(), nil, &Options{Interval: time.Second}), errNoChecker)
	require.ErrorIs(t, Run(context.Background(), &scriptedChecker{}, &Options{}), errNoInterval)
}

// TestRun_ListenFailure reports a bad address.
func TestRun_ListenFailure(t *testing.T) {
	t.Parallel()

	checker := &scriptedChecker{
		outcome: func(int32) (*updater.CheckResult, error) { return &updater.CheckResult{}, nil },
	}

	err := Run(context.Background(), checker, &Options{HealthAddress: "256.0.0.1:1", Interval: time.Second})
	require.Error(t, err)
}
