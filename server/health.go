package server

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service name reported by the gRPC health endpoint.
const ServiceName = "nim.wallet.Assistant"

// HealthServer exposes grpc.health.v1 for load balancers and orchestrators.
type HealthServer struct {
	addr   string
	health *health.Server
	server *grpc.Server
	logger *zap.Logger
}

func NewHealthServer(addr string, logger *zap.Logger) *HealthServer {
	hs := health.NewServer()
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	return &HealthServer{
		addr:   addr,
		health: hs,
		server: s,
		logger: logger,
	}
}

// SetServing flips both the overall and the named service status.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
}

// Run serves until ctx is cancelled or the listener fails.
func (h *HealthServer) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", h.addr, err)
	}
	return h.serve(ctx, lis)
}

func (h *HealthServer) serve(ctx context.Context, lis net.Listener) error {
	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("starting grpc health server", zap.String("addr", lis.Addr().String()))
		errChan <- h.server.Serve(lis)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		h.Shutdown()
		return nil
	}
}

func (h *HealthServer) Shutdown() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
