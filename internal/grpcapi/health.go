// Package grpcapi exposes the standard gRPC health service.  The
// "qrscan.History" entry tracks whether scan history is being persisted.
package grpcapi

import (
	"errors"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const HistoryService = "qrscan.History"

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *zap.Logger
}

func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(HistoryService, healthpb.HealthCheckResponse_SERVING)
	return s
}

// SetPersistErr matches service.HistoryOptions.OnPersistChange: a non-nil
// error marks history NOT_SERVING until a later write succeeds.
func (s *Server) SetPersistErr(err error) {
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(HistoryService, status)
	s.logger.Debug("health status changed", zap.String("service", HistoryService), zap.Stringer("status", status))
}

// Serve blocks until Stop.  A clean stop returns nil.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop marks everything NOT_SERVING so watchers see the shutdown, then
// drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
