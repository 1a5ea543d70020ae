package health

import (
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// FeedService is the health service name tracking the local feed.
const FeedService = "gh-releases.feed"

// Reporter publishes check outcomes as health statuses.
type Reporter struct {
	server *grpchealth.Server
}

// NewReporter creates a reporter with the daemon serving and no update announced.
func NewReporter() *Reporter {
	server := grpchealth.NewServer()
	server.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	server.SetServingStatus(FeedService, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Reporter{
		server: server,
	}
}

// Register attaches the health service to a gRPC server.
func (r *Reporter) Register(registrar grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(registrar, r.server)
}

// SetUpdateAvailable flips the feed status.
func (r *Reporter) SetUpdateAvailable(available bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if available {
		status = healthpb.HealthCheckResponse_SERVING
	}

	r.server.SetServingStatus(FeedService, status)
}

// Shutdown marks every service as not serving and ignores later updates.
func (r *Reporter) Shutdown() {
	r.server.Shutdown()
}

// Server returns the underlying health server.
func (r *Reporter) Server() healthpb.HealthServer {
	return r.server
}
