// Package grpc serves the gRPC health service, reporting SERVING while the
// entity store answers pings.
package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name the server reports under, besides ""
const ServiceName = "tasksync"

// Pinger checks a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server reflects store liveness into the standard gRPC health service
type Server struct {
	health *health.Server
	pinger Pinger
	logger *zap.Logger

	serving bool
}

// NewServer creates a new gRPC health server. It reports NOT_SERVING until
// the first successful check.
func NewServer(pinger Pinger, logger *zap.Logger) *Server {
	s := &Server{
		health: health.NewServer(),
		pinger: pinger,
		logger: logger,
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Register registers the health and reflection services with a gRPC server
func (s *Server) Register(grpcServer *grpc.Server) {
	healthpb.RegisterHealthServer(grpcServer, s.health)
	reflection.Register(grpcServer)
}

// Check pings the store once and updates the reported status
func (s *Server) Check(ctx context.Context) {
	err := s.pinger.Ping(ctx)
	serving := err == nil

	if serving != s.serving {
		if serving {
			s.logger.Info("store reachable, reporting serving")
		} else {
			s.logger.Warn("store unreachable, reporting not serving", zap.Error(err))
		}
	}
	s.serving = serving

	if serving {
		s.setStatus(healthpb.HealthCheckResponse_SERVING)
	} else {
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	}
}

// Run checks the store every interval until ctx is done, then marks every
// service NOT_SERVING
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
