// Package grpcserver exposes the standard gRPC health service so the
// attendance API can be probed by gRPC-aware load balancers.
package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service key reported next to the overall "" key.
const ServiceName = "attendance.v1.AttendanceService"

const defaultInterval = 10 * time.Second

// CheckFunc reports whether the service can handle traffic.
type CheckFunc func(ctx context.Context) error

type Server struct {
	server   *grpc.Server
	health   *health.Server
	check    CheckFunc
	interval time.Duration
	logger   *slog.Logger

	stopOnce sync.Once
	done     chan struct{}
}

func New(check CheckFunc, interval time.Duration, logger *slog.Logger) *Server {
	if interval <= 0 {
		interval = defaultInterval
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	return &Server{
		server:   grpcServer,
		health:   healthServer,
		check:    check,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Serve runs the readiness loop and blocks serving on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.refresh(context.Background())
	go s.watch()

	s.logger.Info("gRPC server starting", "addr", lis.Addr().String())
	return s.server.Serve(lis)
}

func (s *Server) watch() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.refresh(context.Background())
		}
	}
}

func (s *Server) refresh(ctx context.Context) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if s.check != nil {
		if err := s.check(ctx); err != nil {
			s.logger.WarnContext(ctx, "gRPC health check failed", "error", err)
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Stop marks the service as not serving and drains open calls.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.health.Shutdown()
		s.server.GracefulStop()
	})
}
